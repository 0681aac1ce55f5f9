package usecase_test

import (
	"errors"
	"testing"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
)

func testLimits() usecase.Limits {
	return usecase.Limits{LotStep: 0.1, MinLotSize: 0.1, MinNotional: 5}
}

func testSizer() *usecase.Sizer {
	return usecase.NewSizer(usecase.SizerConfig{
		Leverage:          4,
		RiskFraction:      0.24,
		MaxEquityFraction: 1.0,
		Limits:            testLimits(),
	})
}

func TestTrancheCount(t *testing.T) {
	sizer := testSizer()

	tests := []struct {
		strength float64
		want     int
	}{
		{2.5, 1},
		{2.0, 1},
		{1.9, 3},
		{1.6, 3},
		{1.5, 5},
		{1.0, 5},
		{0.5, 5},
	}

	for _, tt := range tests {
		if got := sizer.TrancheCount(tt.strength); got != tt.want {
			t.Errorf("TrancheCount(%v) = %d, want %d", tt.strength, got, tt.want)
		}
	}
}

func TestSize(t *testing.T) {
	sizer := testSizer()

	// equity=1000, price=100, leverage=4, risk=0.24, strength=1.0, 5 tranches:
	// raw = 1000*0.24*4/(5*100) = 1.92, floored to 1.9 at lot 0.1
	qty, err := sizer.Size(1000, 100, 1.0, 5)
	if err != nil {
		t.Fatalf("Size() error: %v", err)
	}
	if qty != 1.9 {
		t.Errorf("Size() = %v, want 1.9", qty)
	}
}

func TestSizeEquityCap(t *testing.T) {
	// Risk leg would ask for 40 units; the equity cap holds it to 10.
	sizer := usecase.NewSizer(usecase.SizerConfig{
		Leverage:          4,
		RiskFraction:      0.5,
		MaxEquityFraction: 1.0,
		Limits:            testLimits(),
	})

	qty, err := sizer.Size(1000, 100, 2.0, 1)
	if err != nil {
		t.Fatalf("Size() error: %v", err)
	}
	if qty != 10 {
		t.Errorf("Size() = %v, want 10 (equity cap)", qty)
	}
	if qty*100 > 1000*1.0/1 {
		t.Errorf("notional %v exceeds equity cap", qty*100)
	}
}

func TestSizeTooSmall(t *testing.T) {
	sizer := testSizer()

	tests := []struct {
		name   string
		equity float64
		price  float64
	}{
		{"below min lot", 1, 100},
		{"below min notional", 20, 10}, // qty 0.3, notional 3 < 5
		{"zero equity", 0, 100},
		{"zero price", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sizer.Size(tt.equity, tt.price, 1.0, 5)
			if !errors.Is(err, domain.ErrSizeTooSmall) {
				t.Errorf("Size(%v, %v) error = %v, want ErrSizeTooSmall", tt.equity, tt.price, err)
			}
		})
	}
}

func TestFloorToLot(t *testing.T) {
	tests := []struct {
		qty, step, want float64
	}{
		{1.92, 0.1, 1.9},
		{0.78, 0.1, 0.7},
		{2.0, 0.1, 2.0},
		{0.09, 0.1, 0.0},
		{1.23456, 0.001, 1.234},
		{5.5, 0, 5.5}, // no step configured
	}

	for _, tt := range tests {
		if got := usecase.FloorToLot(tt.qty, tt.step); got != tt.want {
			t.Errorf("FloorToLot(%v, %v) = %v, want %v", tt.qty, tt.step, got, tt.want)
		}
	}
}
