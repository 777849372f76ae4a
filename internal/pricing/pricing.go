// Package pricing computes the amount owed for a stars order. The engine is
// pure: same quantity and payment method always produce the same quote.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

// Method identifies a supported payment option.
type Method string

const (
	// MethodCard is payment by bank card.
	MethodCard Method = "card"
	// MethodYooMoney is payment via the YooMoney wallet.
	MethodYooMoney Method = "yoomoney"
	// MethodCrypto is payment in USDT.
	MethodCrypto Method = "crypto"
	// MethodOther is a free-text payment option agreed with the admin.
	MethodOther Method = "other"
)

// ErrInvalidQuantity reports a quantity outside the configured bounds.
var ErrInvalidQuantity = errors.New("pricing: invalid quantity")

// Quote is the result of a price computation.
type Quote struct {
	Rate     float64
	Currency string
	Total    float64
}

type rateEntry struct {
	rate     float64
	currency string
}

// Per-method unit rates. MethodOther and unknown methods fall back to
// defaultEntry; the admin settles the exact terms during approval.
var rateTable = map[Method]rateEntry{
	MethodCard:     {rate: 1.7, currency: "RUB"},
	MethodYooMoney: {rate: 1.75, currency: "RUB"},
	MethodCrypto:   {rate: 1.4, currency: "RUB"},
}

var defaultEntry = rateEntry{rate: 1.7, currency: "RUB"}

const (
	// DefaultMinQuantity is the smallest order accepted by the shop.
	DefaultMinQuantity = 50
	// DefaultMaxQuantity bounds a single order.
	DefaultMaxQuantity = 1_000_000
)

// Config tunes quantity bounds and the commission multiplier.
type Config struct {
	MinQuantity int
	MaxQuantity int
	// Commission is an extra fraction added on top of the base price.
	// Zero means the base rate is charged as is.
	Commission float64
}

// Engine computes quotes from the static rate table.
type Engine struct {
	cfg Config
}

// NewEngine constructs an Engine, applying defaults for unset bounds.
func NewEngine(cfg Config) *Engine {
	if cfg.MinQuantity <= 0 {
		cfg.MinQuantity = DefaultMinQuantity
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = DefaultMaxQuantity
	}
	if cfg.Commission < 0 {
		cfg.Commission = 0
	}
	return &Engine{cfg: cfg}
}

// MinQuantity returns the configured lower bound.
func (e *Engine) MinQuantity() int { return e.cfg.MinQuantity }

// MaxQuantity returns the configured upper bound.
func (e *Engine) MaxQuantity() int { return e.cfg.MaxQuantity }

// Compute returns the quote for the given quantity and payment method.
// Quantities outside [MinQuantity, MaxQuantity] yield ErrInvalidQuantity.
func (e *Engine) Compute(quantity int, method Method) (Quote, error) {
	if quantity < e.cfg.MinQuantity || quantity > e.cfg.MaxQuantity {
		return Quote{}, fmt.Errorf("%w: %d not in [%d, %d]",
			ErrInvalidQuantity, quantity, e.cfg.MinQuantity, e.cfg.MaxQuantity)
	}

	entry, ok := rateTable[method]
	if !ok {
		entry = defaultEntry
	}

	total := float64(quantity) * entry.rate * (1 + e.cfg.Commission)
	return Quote{
		Rate:     entry.rate,
		Currency: entry.currency,
		Total:    math.Round(total*100) / 100,
	}, nil
}
