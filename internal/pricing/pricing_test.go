package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePerMethodRates(t *testing.T) {
	e := NewEngine(Config{})

	tests := []struct {
		name     string
		method   Method
		quantity int
		rate     float64
		total    float64
	}{
		{"card", MethodCard, 100, 1.7, 170.00},
		{"yoomoney", MethodYooMoney, 100, 1.75, 175.00},
		{"crypto", MethodCrypto, 100, 1.4, 140.00},
		{"other", MethodOther, 100, 1.7, 170.00},
		{"crypto rounding", MethodCrypto, 53, 1.4, 74.20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.Compute(tt.quantity, tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.rate, q.Rate)
			assert.Equal(t, tt.total, q.Total)
			assert.Equal(t, "RUB", q.Currency)
		})
	}
}

func TestComputeUnknownMethodFallsBack(t *testing.T) {
	e := NewEngine(Config{})

	q, err := e.Compute(100, Method("paypal"))
	require.NoError(t, err)
	assert.Equal(t, 1.7, q.Rate)
	assert.Equal(t, 170.00, q.Total)
}

func TestComputeQuantityBounds(t *testing.T) {
	e := NewEngine(Config{MinQuantity: 50, MaxQuantity: 1000})

	_, err := e.Compute(49, MethodCard)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = e.Compute(1001, MethodCard)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	q, err := e.Compute(50, MethodCard)
	require.NoError(t, err)
	assert.Equal(t, 85.00, q.Total)

	_, err = e.Compute(1000, MethodCard)
	require.NoError(t, err)
}

func TestComputeCommission(t *testing.T) {
	e := NewEngine(Config{Commission: 0.1})

	q, err := e.Compute(100, MethodCard)
	require.NoError(t, err)
	assert.Equal(t, 1.7, q.Rate)
	assert.Equal(t, 187.00, q.Total)
}

func TestComputeDeterministic(t *testing.T) {
	e := NewEngine(Config{})

	first, err := e.Compute(777, MethodYooMoney)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.Compute(777, MethodYooMoney)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(Config{})
	assert.Equal(t, DefaultMinQuantity, e.MinQuantity())
	assert.Equal(t, DefaultMaxQuantity, e.MaxQuantity())

	e = NewEngine(Config{Commission: -1})
	q, err := e.Compute(100, MethodCard)
	require.NoError(t, err)
	assert.Equal(t, 170.00, q.Total)
}
