package usecase

import (
	"context"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

// MonitorConfig holds the exit threshold policy. Percentages are fractions
// of the entry price (0.01 = 1%).
type MonitorConfig struct {
	Interval  time.Duration
	TP1Pct    float64
	TP2Pct    float64
	SLSlowPct float64
	SLHardPct float64
}

// ExitMonitor polls price against the stored entry price and autonomously
// fires partial or total exits when threshold levels are crossed. One
// long-lived goroutine, cancelled through its context; a failed tick is
// logged and the loop continues.
type ExitMonitor struct {
	exchange domain.Exchange
	book     *PositionBook
	exit     *ExitLadder
	logger   *zap.Logger
	symbol   string
	cfg      MonitorConfig
}

func NewExitMonitor(
	exchange domain.Exchange,
	book *PositionBook,
	exit *ExitLadder,
	logger *zap.Logger,
	symbol string,
	cfg MonitorConfig,
) *ExitMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &ExitMonitor{
		exchange: exchange,
		book:     book,
		exit:     exit,
		logger:   logger,
		symbol:   symbol,
		cfg:      cfg,
	}
}

// Start launches the polling loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (m *ExitMonitor) Start(ctx context.Context) {
	m.logger.Info("Starting exit monitor",
		zap.String("symbol", m.symbol),
		zap.Duration("interval", m.cfg.Interval))

	go func() {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.logger.Info("Exit monitor stopped")
				return
			case <-ticker.C:
				m.Tick(ctx)
			}
		}
	}()
}

// State reports "armed" while a position with a known entry price is held,
// "idle" otherwise. For status reporting only.
func (m *ExitMonitor) State() string {
	if m.book.Snapshot().Open() {
		return "armed"
	}
	return "idle"
}

// Tick evaluates thresholds once. Checks run in fixed priority order, full
// closes before partials, and at most one order is issued per tick so a
// single price sample can never double-submit.
func (m *ExitMonitor) Tick(ctx context.Context) {
	snap := m.book.Snapshot()
	if !snap.Open() || snap.EntryPrice <= 0 {
		return
	}

	// A remainder below the minimum tradable size cannot be reduced by any
	// ratio; force-close it instead of grinding on it forever.
	if snap.Quantity < m.exit.Limits().MinLotSize {
		if err := m.exit.Sweep(ctx); err != nil {
			m.logger.Error("Monitor sweep failed", zap.Error(err))
		}
		return
	}

	price, err := m.exchange.GetPrice(ctx, m.symbol)
	if err != nil {
		m.logger.Warn("Monitor price fetch failed", zap.Error(err))
		return
	}

	reason := m.crossedReason(snap, price)
	if reason == "" {
		return
	}

	strength := m.book.Strength()
	res := m.exit.Exit(ctx, snap.Direction, reason, strength)
	switch res.Status {
	case StatusOK:
		// Latch partials only after a confirmed fill; a failed attempt must
		// be retried on a later tick.
		if reason == domain.ReasonTP1 || reason == domain.ReasonSLSlow {
			m.book.MarkFired(reason)
		}
		m.logger.Info("Monitor exit triggered",
			zap.String("reason", reason),
			zap.Float64("price", price),
			zap.Float64("entry", snap.EntryPrice))
	case StatusSkipped:
		// A full-close reason whose ratio floors below the tradable minimum
		// leaves a stub no ratio can reduce; sweep it instead.
		if res.Reason == ReasonSizeTooSmall &&
			(reason == domain.ReasonTP2 || reason == domain.ReasonSLHard) {
			if err := m.exit.Sweep(ctx); err != nil {
				m.logger.Error("Monitor sweep failed", zap.Error(err))
			}
		}
	case StatusError:
		m.logger.Error("Monitor exit failed, retrying next tick",
			zap.String("reason", reason), zap.Error(res.Err))
	}
}

// crossedReason returns the highest-priority threshold crossed by the given
// price, or "" when none is. TP2 and SL_HARD are unlatched: they keep firing
// tick after tick until the position is gone, walking the remainder down to
// the residual sweep. TP1 and SL_SLOW fire once per position.
func (m *ExitMonitor) crossedReason(snap domain.PositionState, price float64) string {
	entry := snap.EntryPrice
	long := snap.Direction == domain.SideLong

	tp1 := threshold(entry, m.cfg.TP1Pct, long, true)
	tp2 := threshold(entry, m.cfg.TP2Pct, long, true)
	slSlow := threshold(entry, m.cfg.SLSlowPct, long, false)
	slHard := threshold(entry, m.cfg.SLHardPct, long, false)

	switch {
	case crossed(price, slHard, !long):
		return domain.ReasonSLHard
	case crossed(price, tp2, long):
		return domain.ReasonTP2
	case crossed(price, slSlow, !long) && !m.book.Fired(domain.ReasonSLSlow):
		return domain.ReasonSLSlow
	case crossed(price, tp1, long) && !m.book.Fired(domain.ReasonTP1):
		return domain.ReasonTP1
	}
	return ""
}

// threshold computes entry·(1 ± pct), with the sign flipped for shorts and
// for stop levels.
func threshold(entry, pct float64, long, profit bool) float64 {
	if long == profit {
		return entry * (1 + pct)
	}
	return entry * (1 - pct)
}

// crossed reports whether price has reached the level. For levels above the
// entry (long profits, short stops) the test is price >= level; otherwise
// price <= level.
func crossed(price, level float64, above bool) bool {
	if above {
		return price >= level
	}
	return price <= level
}
