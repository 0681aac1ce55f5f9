package usecase_test

import (
	"context"
	"errors"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// MockExchange is a scriptable domain.Exchange for engine tests.
type MockExchange struct {
	Equity    float64
	Price     float64
	FillPrice float64

	EquityErr error
	PriceErr  error
	OrderErr  error
	// OrderErrAfter delays OrderErr until this many orders have succeeded.
	OrderErrAfter int

	Orders []domain.OrderIntent
}

func (m *MockExchange) GetEquity(ctx context.Context) (float64, error) {
	if m.EquityErr != nil {
		return 0, m.EquityErr
	}
	return m.Equity, nil
}

func (m *MockExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if m.PriceErr != nil {
		return 0, m.PriceErr
	}
	return m.Price, nil
}

func (m *MockExchange) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	return &domain.Position{Symbol: symbol, Side: domain.SideNone}, nil
}

func (m *MockExchange) PlaceOrder(ctx context.Context, symbol string, intent domain.OrderIntent) (*domain.OrderResult, error) {
	if m.OrderErr != nil && len(m.Orders) >= m.OrderErrAfter {
		return nil, m.OrderErr
	}
	m.Orders = append(m.Orders, intent)
	return &domain.OrderResult{OrderID: "mock-order", FilledPrice: m.FillPrice}, nil
}

// LastOrder returns the most recent order, or false when none was placed.
func (m *MockExchange) LastOrder() (domain.OrderIntent, bool) {
	if len(m.Orders) == 0 {
		return domain.OrderIntent{}, false
	}
	return m.Orders[len(m.Orders)-1], true
}

// MockNotifier records messages.
type MockNotifier struct {
	Messages []string
	Err      error
}

func (m *MockNotifier) Notify(text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, text)
	return nil
}

var errExchangeDown = errors.New("connection refused")
