package funding

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/singnet/snet-client-go/types"
)

// BlocksPerDay converts day-shaped expiration expressions to blocks,
// assuming ~15 second blocks.
const BlocksPerDay = 5760

// MaxExpirationDays is the safety valve: targets further out than roughly
// six months need Force.
const MaxExpirationDays = 180

// ResolveExpiration evaluates an expiration expression against the current
// block. Accepted forms: an absolute block number ("1230000"), a relative
// block count ("+500blocks"), or a day count ("+10days").
func ResolveExpiration(expr string, currentBlock uint64, force bool) (*big.Int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, types.E(types.ErrStrategyRefused, "empty expiration expression")
	}

	var target uint64
	switch {
	case strings.HasPrefix(expr, "+") && strings.HasSuffix(expr, "blocks"):
		n, err := parseCount(expr[1 : len(expr)-len("blocks")])
		if err != nil {
			return nil, types.E(types.ErrStrategyRefused, "invalid expiration %q: %v", expr, err)
		}
		target = currentBlock + n
	case strings.HasPrefix(expr, "+") && strings.HasSuffix(expr, "days"):
		n, err := parseCount(expr[1 : len(expr)-len("days")])
		if err != nil {
			return nil, types.E(types.ErrStrategyRefused, "invalid expiration %q: %v", expr, err)
		}
		target = currentBlock + n*BlocksPerDay
	default:
		n, err := parseCount(expr)
		if err != nil {
			return nil, types.E(types.ErrStrategyRefused, "invalid expiration %q: %v", expr, err)
		}
		target = n
	}

	if target <= currentBlock {
		return nil, types.E(types.ErrExpirationTooClose,
			"expiration %d is not ahead of block %d", target, currentBlock)
	}
	horizon := currentBlock + MaxExpirationDays*BlocksPerDay
	if target > horizon && !force {
		return nil, types.E(types.ErrExpirationTooFar,
			"expiration %d is more than %d days ahead of block %d; pass force to allow",
			target, MaxExpirationDays, currentBlock)
	}
	return new(big.Int).SetUint64(target), nil
}

func parseCount(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}
