package blockchain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestPadGasPriceSteps(t *testing.T) {
	cases := []struct {
		suggested *big.Int
		want      *big.Int
	}{
		{gwei(3), gwei(4)},      // +1/3
		{gwei(9), gwei(12)},     // +1/3
		{gwei(70), gwei(80)},    // +1/7
		{gwei(300), gwei(310)},  // +10 flat
		{gwei(1000), gwei(1100)}, // +10%
	}
	for _, c := range cases {
		got := PadGasPrice(c.suggested)
		assert.Zero(t, c.want.Cmp(got), "suggested %s: want %s got %s", c.suggested, c.want, got)
	}
}

func TestPadGasPriceNeverBelowSuggestion(t *testing.T) {
	for _, n := range []int64{1, 10, 11, 99, 100, 101, 499, 500, 501, 5000} {
		suggested := gwei(n)
		padded := PadGasPrice(suggested)
		assert.True(t, padded.Cmp(suggested) >= 0, "suggestion %d gwei", n)

		ceiling := new(big.Int).Mul(suggested, big.NewInt(4))
		ceiling.Div(ceiling, big.NewInt(3))
		assert.True(t, padded.Cmp(ceiling) <= 0, "suggestion %d gwei", n)
	}
}

func TestPadGasPriceDoesNotMutateInput(t *testing.T) {
	suggested := gwei(5)
	PadGasPrice(suggested)
	assert.Zero(t, suggested.Cmp(gwei(5)))
}
