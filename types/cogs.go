package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the number of decimal places of the marketplace token;
// one token equals 10^TokenDecimals cogs.
const TokenDecimals = 8

// CogsToToken renders an amount of cogs as a decimal token string for
// display (e.g. transaction previews).
func CogsToToken(cogs *big.Int) string {
	if cogs == nil {
		return "0"
	}
	return decimal.NewFromBigInt(cogs, -TokenDecimals).String()
}

// TokenToCogs parses a decimal token amount into cogs. Fractions below one
// cog are rejected rather than silently truncated.
func TokenToCogs(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("token amount cannot be negative")
	}
	shifted := d.Shift(TokenDecimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("token amount %q is below one cog precision", s)
	}
	return shifted.BigInt(), nil
}
