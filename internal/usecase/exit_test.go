package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"go.uber.org/zap"
)

func newExitLadder(ex *MockExchange, limits usecase.Limits) (*usecase.ExitLadder, *usecase.PositionBook) {
	book := usecase.NewPositionBook()
	ladder := usecase.NewExitLadder(ex, book, nil, zap.NewNop(), "SOLUSDT", limits)
	return ladder, book
}

func TestTP1RatioBounds(t *testing.T) {
	tests := []struct {
		strength float64
		want     float64
	}{
		{1.0, 0.3},
		{1.3, 0.39},
		{2.0, 0.6},
		{0.5, 0.3}, // clamped low
		{3.0, 0.6}, // clamped high
	}

	for _, tt := range tests {
		if got := usecase.TP1Ratio(tt.strength); !floatEquals(got, tt.want) {
			t.Errorf("TP1Ratio(%v) = %v, want %v", tt.strength, got, tt.want)
		}
	}
}

func TestTPRatiosSumToOne(t *testing.T) {
	for strength := 1.0; strength <= 2.0; strength += 0.1 {
		tp1 := usecase.RatioFor("TP1", strength)
		tp2 := usecase.RatioFor("TP2", strength)
		if !floatEquals(tp1+tp2, 1.0) {
			t.Errorf("strength %v: TP1 %v + TP2 %v != 1.0", strength, tp1, tp2)
		}
	}
}

func TestRatioFor(t *testing.T) {
	tests := []struct {
		reason string
		want   float64
	}{
		{"EXIT LONG TP1", 0.3},
		{"EXIT LONG TP2", 0.7},
		{"EXIT SHORT SL_SLOW", 0.5},
		{"EXIT SHORT SL_HARD", 1.0},
		{"EXIT LONG", 1.0}, // unrecognized tag closes everything
	}

	for _, tt := range tests {
		if got := usecase.RatioFor(tt.reason, 1.0); !floatEquals(got, tt.want) {
			t.Errorf("RatioFor(%q) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}

const epsilon = 1e-9

func floatEquals(a, b float64) bool {
	return a-b < epsilon && b-a < epsilon
}

func TestExitTP1Partial(t *testing.T) {
	ex := &MockExchange{Price: 100}
	ladder, book := newExitLadder(ex, testLimits())
	book.ApplyEntryFill(domain.SideLong, 2.0, 95)

	res := ladder.Exit(context.Background(), domain.SideLong, "TP1", 1.3)
	require.Equal(t, usecase.StatusOK, res.Status)
	require.Len(t, ex.Orders, 1)

	order := ex.Orders[0]
	assert.Equal(t, domain.OrderSell, order.Side)
	assert.True(t, order.ReduceOnly)
	assert.Equal(t, 0.7, order.Quantity, "floor(2.0 * 0.39) at lot 0.1")

	snap := book.Snapshot()
	assert.True(t, snap.Open())
	assert.InDelta(t, 1.3, snap.Quantity, epsilon)
}

func TestExitFullClose(t *testing.T) {
	ex := &MockExchange{Price: 100}
	ladder, book := newExitLadder(ex, testLimits())
	book.ApplyEntryFill(domain.SideShort, 1.5, 105)

	res := ladder.Exit(context.Background(), domain.SideShort, "SL_HARD", 1.0)
	require.Equal(t, usecase.StatusOK, res.Status)
	require.Len(t, ex.Orders, 1)
	assert.Equal(t, domain.OrderBuy, ex.Orders[0].Side, "short closes with a buy")
	assert.Equal(t, 1.5, ex.Orders[0].Quantity)
	assert.False(t, book.Snapshot().Open(), "full close resets to NONE")
}

func TestExitMismatchedDirectionSkips(t *testing.T) {
	ex := &MockExchange{Price: 100}
	ladder, book := newExitLadder(ex, testLimits())
	book.ApplyEntryFill(domain.SideLong, 2.0, 95)

	res := ladder.Exit(context.Background(), domain.SideShort, "TP1", 1.0)
	assert.Equal(t, usecase.StatusSkipped, res.Status)
	assert.Equal(t, usecase.ReasonPositionMismatch, res.Reason)
	assert.Empty(t, ex.Orders, "closing into the wrong side would open a position")
	assert.Equal(t, 2.0, book.Snapshot().Quantity)
}

func TestExitWithoutPositionSkips(t *testing.T) {
	ex := &MockExchange{Price: 100}
	ladder, _ := newExitLadder(ex, testLimits())

	res := ladder.Exit(context.Background(), domain.SideLong, "TP1", 1.0)
	assert.Equal(t, usecase.StatusSkipped, res.Status)
	assert.Equal(t, usecase.ReasonNoPosition, res.Reason)
	assert.Empty(t, ex.Orders)
}

func TestExitBelowMinimumSkips(t *testing.T) {
	ex := &MockExchange{Price: 100}
	ladder, book := newExitLadder(ex, testLimits())
	book.ApplyEntryFill(domain.SideLong, 0.2, 95)

	// TP1 at strength 1.0 asks for 0.06, floored to 0.0
	res := ladder.Exit(context.Background(), domain.SideLong, "TP1", 1.0)
	assert.Equal(t, usecase.StatusSkipped, res.Status)
	assert.Equal(t, usecase.ReasonSizeTooSmall, res.Reason)
	assert.Empty(t, ex.Orders)
	assert.Equal(t, 0.2, book.Snapshot().Quantity)
}

func TestExitResidualSweep(t *testing.T) {
	ex := &MockExchange{Price: 100}
	limits := usecase.Limits{LotStep: 0.1, MinLotSize: 0.4, MinNotional: 5}
	ladder, book := newExitLadder(ex, limits)
	book.ApplyEntryFill(domain.SideLong, 1.0, 95)

	// TP2 at strength 1.0 closes 0.7; the 0.3 remainder is below the 0.4
	// minimum and must be swept in the same call.
	res := ladder.Exit(context.Background(), domain.SideLong, "TP2", 1.0)
	require.Equal(t, usecase.StatusOK, res.Status)
	require.Len(t, ex.Orders, 2)
	assert.Equal(t, 0.7, ex.Orders[0].Quantity)
	assert.InDelta(t, 0.3, ex.Orders[1].Quantity, epsilon)
	assert.True(t, ex.Orders[1].ReduceOnly)
	assert.False(t, book.Snapshot().Open(), "residual sweep resets the position")
}

func TestExitResidualSweepFailureKeepsRemainder(t *testing.T) {
	ex := &MockExchange{Price: 100, OrderErr: errExchangeDown, OrderErrAfter: 1}
	limits := usecase.Limits{LotStep: 0.1, MinLotSize: 0.4, MinNotional: 5}
	ladder, book := newExitLadder(ex, limits)
	book.ApplyEntryFill(domain.SideLong, 1.0, 95)

	// The partial close fills but the sweep order fails; the remainder stays
	// on the book for the monitor to sweep on a later tick.
	res := ladder.Exit(context.Background(), domain.SideLong, "TP2", 1.0)
	require.Equal(t, usecase.StatusOK, res.Status)
	require.Len(t, ex.Orders, 1)
	snap := book.Snapshot()
	assert.True(t, snap.Open())
	assert.InDelta(t, 0.3, snap.Quantity, epsilon)
}

func TestExitExchangeErrorKeepsState(t *testing.T) {
	ex := &MockExchange{Price: 100, OrderErr: errExchangeDown}
	ladder, book := newExitLadder(ex, testLimits())
	book.ApplyEntryFill(domain.SideLong, 2.0, 95)

	res := ladder.Exit(context.Background(), domain.SideLong, "SL_HARD", 1.0)
	assert.Equal(t, usecase.StatusError, res.Status)
	assert.True(t, errors.Is(res.Err, domain.ErrExchange))
	assert.Equal(t, 2.0, book.Snapshot().Quantity, "rejected order must not mutate state")
}

func TestExitPriceUnavailableFailsClosed(t *testing.T) {
	ex := &MockExchange{PriceErr: errExchangeDown}
	ladder, book := newExitLadder(ex, testLimits())
	book.ApplyEntryFill(domain.SideLong, 2.0, 95)

	res := ladder.Exit(context.Background(), domain.SideLong, "TP1", 1.0)
	assert.Equal(t, usecase.StatusError, res.Status)
	assert.True(t, errors.Is(res.Err, domain.ErrUpstreamUnavailable))
	assert.Empty(t, ex.Orders)
}
