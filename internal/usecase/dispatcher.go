package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/metrics"
	"go.uber.org/zap"
)

// Status is the terminal outcome of handling one signal.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Skip reasons surfaced to the caller.
const (
	ReasonDuplicate        = "duplicate"
	ReasonUnhandled        = "unhandled"
	ReasonNoPosition       = "no_position"
	ReasonSizeTooSmall     = "size_too_small"
	ReasonPositionMismatch = "position_mismatch"
)

// Result is the structured outcome returned for every signal. Exactly one
// Result per signal; nothing here retries automatically.
type Result struct {
	Status Status
	Reason string // set for skipped results
	Detail string // human-readable summary for ok results
	Err    error  // set for error results, wraps a domain sentinel
}

func ok(detail string) Result {
	return Result{Status: StatusOK, Detail: detail}
}

func skipped(reason string, err error) Result {
	return Result{Status: StatusSkipped, Reason: reason, Err: err}
}

func failed(err error) Result {
	return Result{Status: StatusError, Err: err}
}

// SignalRequest is the raw webhook payload shape. The signal field carries
// space-separated tokens, e.g. "ENTRY LONG STEP 2" or "EXIT SHORT TP1".
type SignalRequest struct {
	Signal        string  `json:"signal"`
	Strength      float64 `json:"strength"`
	OrderID       string  `json:"order_id"`
	CorrelationID string  `json:"correlationId"`
}

// ParseSignal validates a raw payload into a domain signal. Direction and
// strength must be derivable or the payload is rejected; a missing action
// token is left empty and surfaces later as an unhandled skip. A payload
// without a correlation ID gets a generated one, which by construction never
// deduplicates.
func ParseSignal(req SignalRequest) (domain.Signal, error) {
	text := strings.ToUpper(strings.TrimSpace(req.Signal))
	if text == "" {
		return domain.Signal{}, fmt.Errorf("%w: empty signal field", domain.ErrInvalidSignal)
	}

	var sig domain.Signal
	sig.Reason = text

	switch {
	case strings.Contains(text, string(domain.ActionExit)):
		sig.Action = domain.ActionExit
	case strings.Contains(text, string(domain.ActionEntry)):
		sig.Action = domain.ActionEntry
	}

	hasLong := strings.Contains(text, string(domain.SideLong))
	hasShort := strings.Contains(text, string(domain.SideShort))
	switch {
	case hasLong && !hasShort:
		sig.Direction = domain.SideLong
	case hasShort && !hasLong:
		sig.Direction = domain.SideShort
	default:
		return domain.Signal{}, fmt.Errorf("%w: direction not derivable from %q", domain.ErrInvalidSignal, req.Signal)
	}

	sig.Strength = req.Strength
	if sig.Strength == 0 {
		sig.Strength = 1.0
	}
	if sig.Strength < 0 || math.IsNaN(sig.Strength) || math.IsInf(sig.Strength, 0) {
		return domain.Signal{}, fmt.Errorf("%w: strength %v", domain.ErrInvalidSignal, req.Strength)
	}

	sig.CorrelationID = req.OrderID
	if sig.CorrelationID == "" {
		sig.CorrelationID = req.CorrelationID
	}
	if sig.CorrelationID == "" {
		sig.CorrelationID = uuid.NewString()
	}
	return sig, nil
}

// Dispatcher validates, de-duplicates and routes inbound signals.
type Dispatcher struct {
	dedup  *DedupTable
	entry  *EntryLadder
	exit   *ExitLadder
	logger *zap.Logger
}

func NewDispatcher(dedup *DedupTable, entry *EntryLadder, exit *ExitLadder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{dedup: dedup, entry: entry, exit: exit, logger: logger}
}

// Dispatch runs the per-signal state machine: parse, dedup, classify, route.
// Each terminal produces exactly one Result; duplicates and validation
// failures have no side effects.
func (d *Dispatcher) Dispatch(ctx context.Context, req SignalRequest) Result {
	sig, err := ParseSignal(req)
	if err != nil {
		d.logger.Warn("Rejected signal", zap.String("signal", req.Signal), zap.Error(err))
		metrics.Signals.WithLabelValues("invalid").Inc()
		return failed(err)
	}

	if d.dedup.Check(sig.CorrelationID) {
		d.logger.Info("Duplicate signal discarded",
			zap.String("correlation_id", sig.CorrelationID))
		metrics.DedupHits.Inc()
		metrics.Signals.WithLabelValues(ReasonDuplicate).Inc()
		return skipped(ReasonDuplicate, domain.ErrDuplicateSignal)
	}

	d.logger.Info("Signal accepted",
		zap.String("action", string(sig.Action)),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("strength", sig.Strength),
		zap.String("correlation_id", sig.CorrelationID))

	var res Result
	switch sig.Action {
	case domain.ActionEntry:
		res = d.entry.Enter(ctx, sig.Direction, sig.Strength)
	case domain.ActionExit:
		res = d.exit.Exit(ctx, sig.Direction, sig.Reason, sig.Strength)
	default:
		res = skipped(ReasonUnhandled, nil)
	}

	metrics.Signals.WithLabelValues(string(res.Status)).Inc()
	return res
}
