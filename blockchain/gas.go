package blockchain

import "math/big"

// Gas price padding thresholds, in wei.
var (
	gasLowCeiling  = big.NewInt(10_000_000_000)  // 10 gwei
	gasMidCeiling  = big.NewInt(100_000_000_000) // 100 gwei
	gasHighCeiling = big.NewInt(500_000_000_000) // 500 gwei
	gasFlatPad     = big.NewInt(10_000_000_000)  // 10 gwei
)

// PadGasPrice pads the node-suggested gas price with a deterministic step
// function so transactions are not stuck behind the suggestion:
//
//	suggestion ≤ 10 gwei   → +1/3
//	suggestion ≤ 100 gwei  → +1/7
//	suggestion ≤ 500 gwei  → +10 gwei flat
//	otherwise              → +10%
//
// The result is always ≥ the suggestion and ≤ 4/3 of it.
func PadGasPrice(suggested *big.Int) *big.Int {
	price := new(big.Int).Set(suggested)
	switch {
	case suggested.Cmp(gasLowCeiling) <= 0:
		price.Add(price, new(big.Int).Div(suggested, big.NewInt(3)))
	case suggested.Cmp(gasMidCeiling) <= 0:
		price.Add(price, new(big.Int).Div(suggested, big.NewInt(7)))
	case suggested.Cmp(gasHighCeiling) <= 0:
		price.Add(price, gasFlatPad)
	default:
		price.Add(price, new(big.Int).Div(suggested, big.NewInt(10)))
	}
	return price
}
