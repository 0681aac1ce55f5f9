package domain

import "context"

// Exchange defines the interface for interacting with a derivatives exchange.
// All calls are synchronous round-trips with bounded timeouts; failures come
// back as errors, never panics.
type Exchange interface {
	GetEquity(ctx context.Context) (float64, error)
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)
	PlaceOrder(ctx context.Context, symbol string, intent OrderIntent) (*OrderResult, error)
}

// Notifier pushes human-readable notifications. Best-effort: callers log
// failures and move on.
type Notifier interface {
	Notify(text string) error
}
