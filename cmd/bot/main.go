package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/logger"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/notifier"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"github.com/vitos/crypto_signal_bot/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange struct {
		APIKey        string `yaml:"api_key"`
		APISecret     string `yaml:"api_secret"`
		APIPassphrase string `yaml:"api_passphrase"`
		RESTEndpoint  string `yaml:"rest_endpoint"`
		WSEndpoint    string `yaml:"ws_endpoint"`
		Symbol        string `yaml:"symbol"`
	} `yaml:"exchange"`
	Trading struct {
		Leverage          int     `yaml:"leverage"`
		RiskFraction      float64 `yaml:"risk_fraction"`
		MaxEquityFraction float64 `yaml:"max_equity_fraction"`
		LotStep           float64 `yaml:"lot_step"`
		MinLotSize        float64 `yaml:"min_lot_size"`
		MinNotional       float64 `yaml:"min_notional"`
		LadderMode        string  `yaml:"ladder_mode"`
	} `yaml:"trading"`
	Exits struct {
		TP1Pct            float64 `yaml:"tp1_pct"`
		TP2Pct            float64 `yaml:"tp2_pct"`
		SLSlowPct         float64 `yaml:"sl_slow_pct"`
		SLHardPct         float64 `yaml:"sl_hard_pct"`
		MonitorIntervalMs int     `yaml:"monitor_interval_ms"`
	} `yaml:"exits"`
	Dedup struct {
		CooldownMs int `yaml:"cooldown_ms"`
	} `yaml:"dedup"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level     string `yaml:"level"`
		AuditFile string `yaml:"audit_file"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Optional dedicated audit log for the signal path
	signalLog := log
	if cfg.Logging.AuditFile != "" {
		signalLog, err = logger.NewFileLogger(cfg.Logging.AuditFile, cfg.Logging.Level)
		if err != nil {
			log.Error("Failed to init audit logger, using default", zap.Error(err))
			signalLog = log
		}
	}

	// 3. Init Exchange (Bitget)
	bitget := exchange.NewBitgetAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.APIPassphrase,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		log,
	)

	// 4. Init Notifier
	var notify domain.Notifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notify = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	// 5. Init Engine
	symbol := cfg.Exchange.Symbol
	limits := usecase.Limits{
		LotStep:     cfg.Trading.LotStep,
		MinLotSize:  cfg.Trading.MinLotSize,
		MinNotional: cfg.Trading.MinNotional,
	}
	sizer := usecase.NewSizer(usecase.SizerConfig{
		Leverage:          cfg.Trading.Leverage,
		RiskFraction:      cfg.Trading.RiskFraction,
		MaxEquityFraction: cfg.Trading.MaxEquityFraction,
		Limits:            limits,
	})
	book := usecase.NewPositionBook()
	entry := usecase.NewEntryLadder(bitget, sizer, book, notify, signalLog, symbol,
		usecase.LadderMode(cfg.Trading.LadderMode))
	exit := usecase.NewExitLadder(bitget, book, notify, signalLog, symbol, limits)
	dedup := usecase.NewDedupTable(time.Duration(cfg.Dedup.CooldownMs) * time.Millisecond)
	dispatcher := usecase.NewDispatcher(dedup, entry, exit, signalLog)

	// 6. Price Stream (REST fallback stays available if the dial fails)
	if err := bitget.ConnectWS([]string{symbol}); err != nil {
		log.Warn("WS connect failed, using REST prices", zap.Error(err))
	}

	// 7. Exit Monitor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := usecase.NewExitMonitor(bitget, book, exit, log, symbol, usecase.MonitorConfig{
		Interval:  time.Duration(cfg.Exits.MonitorIntervalMs) * time.Millisecond,
		TP1Pct:    cfg.Exits.TP1Pct,
		TP2Pct:    cfg.Exits.TP2Pct,
		SLSlowPct: cfg.Exits.SLSlowPct,
		SLHardPct: cfg.Exits.SLHardPct,
	})
	monitor.Start(ctx)

	// 8. Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080 // Default
	}
	server := web.NewServer(port, dispatcher, book, dedup, monitor, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	server.Shutdown(context.Background())
}
