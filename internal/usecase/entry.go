package usecase

import (
	"context"
	"fmt"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/metrics"
	"go.uber.org/zap"
)

// LadderMode controls how entry tranches are issued.
type LadderMode string

const (
	// LadderModeSignal issues one tranche per ENTRY signal; the sender drives
	// the ladder by repeating the signal. This is the default.
	LadderModeSignal LadderMode = "signal"
	// LadderModeBurst issues the full ladder in one call.
	LadderModeBurst LadderMode = "burst"
)

// EntryLadder turns an ENTRY signal into sized market orders and keeps the
// position book in sync with confirmed fills.
type EntryLadder struct {
	exchange domain.Exchange
	sizer    *Sizer
	book     *PositionBook
	notifier domain.Notifier
	logger   *zap.Logger
	symbol   string
	mode     LadderMode
}

func NewEntryLadder(
	exchange domain.Exchange,
	sizer *Sizer,
	book *PositionBook,
	notifier domain.Notifier,
	logger *zap.Logger,
	symbol string,
	mode LadderMode,
) *EntryLadder {
	if mode == "" {
		mode = LadderModeSignal
	}
	return &EntryLadder{
		exchange: exchange,
		sizer:    sizer,
		book:     book,
		notifier: notifier,
		logger:   logger,
		symbol:   symbol,
		mode:     mode,
	}
}

// Enter handles one ENTRY signal. Equity and price are fetched up front;
// if either query fails the entry is aborted before any order is attempted.
// An entry against an open position of the opposite direction is skipped:
// reversing would require a close-then-open sequence the sender has to drive
// explicitly with an EXIT first.
func (l *EntryLadder) Enter(ctx context.Context, direction domain.Side, strength float64) Result {
	snap := l.book.Snapshot()
	if snap.Open() && snap.Direction != direction {
		l.logger.Warn("Entry against opposite position skipped",
			zap.String("held", string(snap.Direction)),
			zap.String("requested", string(direction)))
		return skipped(ReasonPositionMismatch, domain.ErrPositionMismatch)
	}

	equity, err := l.exchange.GetEquity(ctx)
	if err != nil {
		return failed(fmt.Errorf("%w: equity: %v", domain.ErrUpstreamUnavailable, err))
	}
	metrics.Equity.Set(equity)

	price, err := l.exchange.GetPrice(ctx, l.symbol)
	if err != nil {
		return failed(fmt.Errorf("%w: price: %v", domain.ErrUpstreamUnavailable, err))
	}

	trancheCount := l.sizer.TrancheCount(strength)
	tranches := 1
	if l.mode == LadderModeBurst {
		tranches = trancheCount
	}

	var placedQty float64
	for i := 0; i < tranches; i++ {
		qty, err := l.sizer.Size(equity, price, strength, trancheCount)
		if err != nil {
			if placedQty == 0 {
				l.logger.Info("Entry skipped, size below exchange minimum",
					zap.Float64("equity", equity), zap.Float64("price", price))
				return skipped(ReasonSizeTooSmall, err)
			}
			break
		}

		intent := domain.OrderIntent{
			Side:       domain.OrderSideFor(direction),
			Quantity:   qty,
			ReduceOnly: false,
		}
		res, err := l.exchange.PlaceOrder(ctx, l.symbol, intent)
		if err != nil {
			// State is not assumed updated for an unconfirmed order.
			if placedQty == 0 {
				return failed(fmt.Errorf("%w: %v", domain.ErrExchange, err))
			}
			l.logger.Error("Entry tranche failed mid-ladder", zap.Error(err),
				zap.Float64("placed", placedQty))
			break
		}

		fill := res.FilledPrice
		if fill <= 0 {
			fill = price
		}
		state := l.book.ApplyEntryFill(direction, qty, fill)
		l.book.SetStrength(strength)

		metrics.Orders.WithLabelValues(string(intent.Side), "false").Inc()
		metrics.PositionSize.Set(state.Quantity)
		placedQty += qty

		l.logger.Info("Entry tranche filled",
			zap.String("symbol", l.symbol),
			zap.String("direction", string(direction)),
			zap.Float64("qty", qty),
			zap.Float64("price", fill),
			zap.Float64("position", state.Quantity))
	}

	l.notify(fmt.Sprintf("ENTRY %s %s qty=%.4f @ %.4f", direction, l.symbol, placedQty, price))
	return ok(fmt.Sprintf("entered %.4f", placedQty))
}

func (l *EntryLadder) notify(text string) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(text); err != nil {
		l.logger.Warn("Notification failed", zap.Error(err))
	}
}
