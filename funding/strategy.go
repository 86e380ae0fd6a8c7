// Package funding decides, before each call, whether a channel needs funds
// added or its expiration extended. Policies implement a narrow interface;
// additional policies compose by delegation.
package funding

import (
	"context"
	"math/big"

	"github.com/singnet/snet-client-go/types"
)

// ActionKind enumerates what a strategy wants done before the call proceeds.
type ActionKind int

const (
	Proceed ActionKind = iota
	TopUp
	Extend
	TopUpAndExtend
	Fail
)

// Action is a strategy's decision. TopUpAmount and NewExpiration are set for
// the kinds that need them.
type Action struct {
	Kind          ActionKind
	TopUpAmount   *big.Int
	NewExpiration *big.Int
	Reason        string
}

// CallContext is the state a strategy decides on. Channel is freshly read
// from the chain by the pipeline, never a cache entry.
type CallContext struct {
	Channel      types.Channel
	Unspent      *big.Int
	Price        *big.Int
	CurrentBlock uint64
}

// Strategy is consulted once per call, before the voucher is constructed.
type Strategy interface {
	BeforeCall(ctx context.Context, call *CallContext) (Action, error)
}

// ChannelReader re-reads channel state when a cached figure looks too low.
type ChannelReader interface {
	Channel(ctx context.Context, id *big.Int) (types.Channel, error)
}

// Basic never adds funds. It fails when the channel cannot pay for the call
// or expires within the threshold.
type Basic struct {
	ThresholdBlocks uint64
}

func (b *Basic) BeforeCall(_ context.Context, call *CallContext) (Action, error) {
	if call.Unspent.Cmp(call.Price) < 0 {
		return Action{Kind: Fail}, types.E(types.ErrChannelInsufficient,
			"channel %s has %s cogs unspent, call costs %s",
			call.Channel.ID, call.Unspent, call.Price)
	}
	deadline := new(big.Int).SetUint64(call.CurrentBlock + b.ThresholdBlocks)
	if call.Channel.Expiration.Cmp(deadline) < 0 {
		return Action{Kind: Fail}, types.E(types.ErrChannelExpired,
			"channel %s expires at block %s, within %d blocks of head %d",
			call.Channel.ID, call.Channel.Expiration, b.ThresholdBlocks, call.CurrentBlock)
	}
	return Action{Kind: Proceed}, nil
}

// AutoFunding tops up and extends so that after its action the channel holds
// at least the call price unspent and stays open past the threshold.
type AutoFunding struct {
	// TopUpAmount is the increment added per refill; shortfalls larger than
	// one increment round up to a multiple of it.
	TopUpAmount *big.Int
	// TargetExpiration is an expiration expression (absolute block,
	// +Nblocks, or +Ndays) used when extending.
	TargetExpiration string
	ThresholdBlocks  uint64
	// Force allows targets beyond the far-expiration safety valve.
	Force bool
	// Chain refreshes channel state when the cached view says insufficient.
	Chain ChannelReader
}

func (a *AutoFunding) BeforeCall(ctx context.Context, call *CallContext) (Action, error) {
	channel := call.Channel
	unspent := call.Unspent

	needTopUp := unspent.Cmp(call.Price) < 0
	if needTopUp && a.Chain != nil {
		// The cache may lag a funding transaction from another process.
		fresh, err := a.Chain.Channel(ctx, channel.ID)
		if err == nil && fresh.Value.Cmp(channel.Value) > 0 {
			gained := new(big.Int).Sub(fresh.Value, channel.Value)
			unspent = new(big.Int).Add(unspent, gained)
			channel = fresh
			needTopUp = unspent.Cmp(call.Price) < 0
		}
	}

	deadline := new(big.Int).SetUint64(call.CurrentBlock + a.ThresholdBlocks)
	needExtend := channel.Expiration.Cmp(deadline) < 0

	if !needTopUp && !needExtend {
		return Action{Kind: Proceed}, nil
	}

	action := Action{}
	if needTopUp {
		shortfall := new(big.Int).Sub(call.Price, unspent)
		action.TopUpAmount = roundUpTo(shortfall, a.TopUpAmount)
	}
	if needExtend {
		target, err := ResolveExpiration(a.TargetExpiration, call.CurrentBlock, a.Force)
		if err != nil {
			return Action{Kind: Fail}, err
		}
		if target.Cmp(deadline) < 0 {
			return Action{Kind: Fail}, types.E(types.ErrExpirationTooClose,
				"target expiration %s resolves within %d blocks of head %d",
				target, a.ThresholdBlocks, call.CurrentBlock)
		}
		action.NewExpiration = target
	}

	switch {
	case needTopUp && needExtend:
		action.Kind = TopUpAndExtend
	case needTopUp:
		action.Kind = TopUp
	default:
		action.Kind = Extend
	}
	return action, nil
}

// roundUpTo rounds need up to the next positive multiple of unit.
func roundUpTo(need, unit *big.Int) *big.Int {
	if unit == nil || unit.Sign() <= 0 {
		return new(big.Int).Set(need)
	}
	times := new(big.Int).Div(new(big.Int).Add(need, new(big.Int).Sub(unit, big.NewInt(1))), unit)
	if times.Sign() <= 0 {
		times = big.NewInt(1)
	}
	return new(big.Int).Mul(times, unit)
}
