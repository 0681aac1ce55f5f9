package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/metrics"
	"go.uber.org/zap"
)

// ExitLadder computes ratio-based close quantities for a held position and
// issues reduce-only orders. It never closes into a direction it does not
// hold: a mismatched close would open a new position instead of reducing one.
type ExitLadder struct {
	exchange domain.Exchange
	book     *PositionBook
	notifier domain.Notifier
	logger   *zap.Logger
	symbol   string
	limits   Limits
}

func NewExitLadder(
	exchange domain.Exchange,
	book *PositionBook,
	notifier domain.Notifier,
	logger *zap.Logger,
	symbol string,
	limits Limits,
) *ExitLadder {
	return &ExitLadder{
		exchange: exchange,
		book:     book,
		notifier: notifier,
		logger:   logger,
		symbol:   symbol,
		limits:   limits,
	}
}

// TP1Ratio scales the first take-profit share with signal strength:
// 0.3 at strength 1.0, capped at 0.6 from strength 2.0 up.
func TP1Ratio(strength float64) float64 {
	r := 0.3 + (strength-1.0)*0.3
	if r < 0.3 {
		r = 0.3
	}
	if r > 0.6 {
		r = 0.6
	}
	return r
}

// RatioFor selects the close ratio for an exit reason tag. Reason matching is
// by token containment, so senders may pass composite tags like
// "EXIT LONG TP1". An EXIT with no recognized token closes everything.
func RatioFor(reason string, strength float64) float64 {
	reason = strings.ToUpper(reason)
	switch {
	case strings.Contains(reason, domain.ReasonTP1):
		return TP1Ratio(strength)
	case strings.Contains(reason, domain.ReasonTP2):
		return 1.0 - TP1Ratio(strength)
	case strings.Contains(reason, domain.ReasonSLSlow):
		return 0.5
	default:
		return 1.0
	}
}

// exitToken normalizes a reason tag for metrics and notifications.
func exitToken(reason string) string {
	reason = strings.ToUpper(reason)
	for _, t := range []string{domain.ReasonTP1, domain.ReasonTP2, domain.ReasonSLSlow, domain.ReasonSLHard} {
		if strings.Contains(reason, t) {
			return t
		}
	}
	return "FULL"
}

// Exit handles one EXIT request, signal-driven or monitor-driven. A close
// quantity that floors below the exchange minimums is a no-op Skip: the
// engine never attempts an unfillable partial close.
func (l *ExitLadder) Exit(ctx context.Context, direction domain.Side, reason string, strength float64) Result {
	snap := l.book.Snapshot()
	if !snap.Open() {
		return skipped(ReasonNoPosition, nil)
	}
	if snap.Direction != direction {
		l.logger.Warn("Exit against mismatched position skipped",
			zap.String("held", string(snap.Direction)),
			zap.String("requested", string(direction)))
		return skipped(ReasonPositionMismatch, domain.ErrPositionMismatch)
	}

	price, err := l.exchange.GetPrice(ctx, l.symbol)
	if err != nil {
		return failed(fmt.Errorf("%w: price: %v", domain.ErrUpstreamUnavailable, err))
	}

	ratio := RatioFor(reason, strength)
	closeQty := FloorToLot(snap.Quantity*ratio, l.limits.LotStep)
	if closeQty < l.limits.MinLotSize || closeQty*price < l.limits.MinNotional {
		l.logger.Info("Exit skipped, close quantity below exchange minimum",
			zap.Float64("position", snap.Quantity),
			zap.Float64("ratio", ratio),
			zap.Float64("close_qty", closeQty))
		return skipped(ReasonSizeTooSmall, domain.ErrSizeTooSmall)
	}

	intent := domain.OrderIntent{
		Side:       domain.OrderSideFor(direction.Opposite()),
		Quantity:   closeQty,
		ReduceOnly: true,
	}
	if _, err := l.exchange.PlaceOrder(ctx, l.symbol, intent); err != nil {
		return failed(fmt.Errorf("%w: %v", domain.ErrExchange, err))
	}

	remaining := l.book.ApplyExitFill(closeQty)
	token := exitToken(reason)
	metrics.Orders.WithLabelValues(string(intent.Side), "true").Inc()
	metrics.Exits.WithLabelValues(token).Inc()
	metrics.PositionSize.Set(remaining)

	l.logger.Info("Exit filled",
		zap.String("symbol", l.symbol),
		zap.String("reason", token),
		zap.Float64("close_qty", closeQty),
		zap.Float64("remaining", remaining))
	l.notify(fmt.Sprintf("EXIT %s %s qty=%.4f remaining=%.4f", token, l.symbol, closeQty, remaining))

	if remaining > 0 && remaining < l.limits.MinLotSize {
		if err := l.Sweep(ctx); err != nil {
			// Remainder stays on the book; the monitor retries next tick.
			l.logger.Error("Residual sweep failed", zap.Error(err))
		}
	}
	return ok(fmt.Sprintf("closed %.4f", closeQty))
}

// Sweep force-closes whatever quantity is left on the book with a single
// reduce-only order and resets the position to NONE. Used when a partial exit
// leaves a remainder below the minimum tradable size.
func (l *ExitLadder) Sweep(ctx context.Context) error {
	snap := l.book.Snapshot()
	if !snap.Open() {
		return nil
	}

	intent := domain.OrderIntent{
		Side:       domain.OrderSideFor(snap.Direction.Opposite()),
		Quantity:   snap.Quantity,
		ReduceOnly: true,
	}
	if _, err := l.exchange.PlaceOrder(ctx, l.symbol, intent); err != nil {
		return fmt.Errorf("%w: sweep: %v", domain.ErrExchange, err)
	}

	l.book.Reset()
	metrics.Orders.WithLabelValues(string(intent.Side), "true").Inc()
	metrics.PositionSize.Set(0)
	l.logger.Info("Residual position swept",
		zap.String("symbol", l.symbol),
		zap.Float64("qty", snap.Quantity))
	l.notify(fmt.Sprintf("SWEEP %s qty=%.4f", l.symbol, snap.Quantity))
	return nil
}

// Limits exposes the exchange constraints the ladder enforces.
func (l *ExitLadder) Limits() Limits {
	return l.limits
}

func (l *ExitLadder) notify(text string) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(text); err != nil {
		l.logger.Warn("Notification failed", zap.Error(err))
	}
}
