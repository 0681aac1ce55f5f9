package usecase

import (
	"sync"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// PositionBook is the single owner of the engine's position state. Both the
// signal-handling path and the exit monitor go through it, so one mutex
// serializes every read and transition; no caller touches fields directly.
//
// The book also carries the monitor's partial-exit latches: once TP1 or
// SL_SLOW has fired for a position, it must not fire again while price stays
// beyond the level. Latches reset together with the position.
type PositionBook struct {
	mu    sync.Mutex
	state domain.PositionState

	tp1Fired    bool
	slSlowFired bool
	strength    float64

	now func() time.Time
}

func NewPositionBook() *PositionBook {
	return &PositionBook{
		state: domain.PositionState{Direction: domain.SideNone},
		now:   time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (b *PositionBook) Snapshot() domain.PositionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ApplyEntryFill records a confirmed entry tranche. The entry price is
// captured once, at the first tranche of a fresh position; later tranches
// only add quantity.
func (b *PositionBook) ApplyEntryFill(direction domain.Side, qty, fillPrice float64) domain.PositionState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.Open() {
		b.state = domain.PositionState{
			Direction:  direction,
			Quantity:   qty,
			EntryPrice: fillPrice,
			OpenedAt:   b.now(),
		}
		b.tp1Fired = false
		b.slSlowFired = false
		b.strength = 0
		return b.state
	}

	b.state.Quantity += qty
	return b.state
}

// ApplyExitFill decrements quantity after a confirmed close and returns the
// remainder. At zero the position resets to NONE.
func (b *PositionBook) ApplyExitFill(qty float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Quantity -= qty
	if b.state.Quantity <= 0 {
		b.resetLocked()
		return 0
	}
	return b.state.Quantity
}

// Reset clears the position and the monitor latches.
func (b *PositionBook) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *PositionBook) resetLocked() {
	b.state = domain.PositionState{Direction: domain.SideNone}
	b.tp1Fired = false
	b.slSlowFired = false
	b.strength = 0
}

// SetStrength records the conviction of the signal that opened the position.
// Only the first tranche wins; later tranches keep the original value.
func (b *PositionBook) SetStrength(s float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.strength == 0 {
		b.strength = s
	}
}

// Strength returns the opening signal's strength, defaulting to 1.0.
func (b *PositionBook) Strength() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.strength <= 0 {
		return 1.0
	}
	return b.strength
}

// MarkFired latches a partial-exit reason. Returns false if it was already
// latched, so a caller can use it as a fire-once gate.
func (b *PositionBook) MarkFired(reason string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch reason {
	case domain.ReasonTP1:
		if b.tp1Fired {
			return false
		}
		b.tp1Fired = true
	case domain.ReasonSLSlow:
		if b.slSlowFired {
			return false
		}
		b.slSlowFired = true
	}
	return true
}

// Fired reports whether a partial-exit reason has already been triggered for
// the current position.
func (b *PositionBook) Fired(reason string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch reason {
	case domain.ReasonTP1:
		return b.tp1Fired
	case domain.ReasonSLSlow:
		return b.slSlowFired
	}
	return false
}
