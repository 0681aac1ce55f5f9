package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vitos/crypto_signal_bot/internal/infrastructure/exchange"
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
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing Bitget Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)

	adapter := exchange.NewBitgetAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.APIPassphrase,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		zap.NewNop(),
	)
	ctx := context.Background()
	symbol := cfg.Exchange.Symbol

	// Public endpoint
	price, err := adapter.GetPrice(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s): %f\n", symbol, price)
	}

	// Private endpoints
	equity, err := adapter.GetEquity(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get equity: %v\n", err)
	} else {
		fmt.Printf("✅ Account Equity: %f\n", equity)
	}

	pos, err := adapter.GetPosition(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get position: %v\n", err)
	} else {
		fmt.Printf("✅ Position (%s): Size=%f, Side=%s, Entry=%f\n",
			symbol, pos.Size, pos.Side, pos.EntryPrice)
	}
}
