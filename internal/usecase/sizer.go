package usecase

import (
	"github.com/shopspring/decimal"
	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// Limits describes exchange-imposed minimum order constraints.
type Limits struct {
	LotStep     float64 // order quantity granularity, e.g. 0.1
	MinLotSize  float64 // smallest tradable quantity
	MinNotional float64 // smallest order value in quote currency
}

// StrengthTier maps a minimum signal strength to a tranche count.
type StrengthTier struct {
	MinStrength float64
	Tranches    int
}

// SizerConfig carries the sizing policy. Tier boundaries and fractions vary
// between deployments, so all of it comes from config.
type SizerConfig struct {
	Leverage          int
	RiskFraction      float64
	MaxEquityFraction float64
	Tiers             []StrengthTier // checked in order, first match wins
	DefaultTranches   int
	Limits            Limits
}

// DefaultStrengthTiers is the stock tranche policy: full conviction trades in
// one tranche, moderate in three, everything else ladders over five.
func DefaultStrengthTiers() []StrengthTier {
	return []StrengthTier{
		{MinStrength: 2.0, Tranches: 1},
		{MinStrength: 1.6, Tranches: 3},
	}
}

// Sizer converts account equity into a per-tranche order quantity.
type Sizer struct {
	cfg SizerConfig
}

func NewSizer(cfg SizerConfig) *Sizer {
	if cfg.DefaultTranches <= 0 {
		cfg.DefaultTranches = 5
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultStrengthTiers()
	}
	if cfg.MaxEquityFraction <= 0 {
		cfg.MaxEquityFraction = 1.0
	}
	return &Sizer{cfg: cfg}
}

// TrancheCount picks the ladder depth for a signal strength.
func (s *Sizer) TrancheCount(strength float64) int {
	for _, t := range s.cfg.Tiers {
		if strength >= t.MinStrength {
			return t.Tranches
		}
	}
	return s.cfg.DefaultTranches
}

// Size computes one tranche's order quantity from current equity and price.
// Returns domain.ErrSizeTooSmall when the floored quantity violates the
// exchange's lot or notional minimums; no order should be attempted then.
func (s *Sizer) Size(equity, price, strength float64, trancheCount int) (float64, error) {
	if equity <= 0 || price <= 0 || trancheCount <= 0 {
		return 0, domain.ErrSizeTooSmall
	}

	raw := equity * s.cfg.RiskFraction * float64(s.cfg.Leverage) * strength / (float64(trancheCount) * price)
	maxQty := equity * s.cfg.MaxEquityFraction / (float64(trancheCount) * price)
	if maxQty < raw {
		raw = maxQty
	}

	qty := FloorToLot(raw, s.cfg.Limits.LotStep)
	if qty < s.cfg.Limits.MinLotSize || qty*price < s.cfg.Limits.MinNotional {
		return 0, domain.ErrSizeTooSmall
	}
	return qty, nil
}

// FloorToLot truncates a quantity toward zero at the exchange's lot
// granularity. Truncation only: the engine never requests more margin than
// computed. Decimal math keeps 1.92 at step 0.1 from landing on 1.8999...
func FloorToLot(qty, lotStep float64) float64 {
	if lotStep <= 0 {
		return qty
	}
	step := decimal.NewFromFloat(lotStep)
	d := decimal.NewFromFloat(qty).Div(step).Floor().Mul(step)
	f, _ := d.Float64()
	return f
}
