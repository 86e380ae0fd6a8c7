package claim

import (
	"context"
	"math/big"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metrics"
	"github.com/singnet/snet-client-go/types"
)

// Chain is the slice of the gateway the claim cycle drives.
type Chain interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	Channel(ctx context.Context, id *big.Int) (types.Channel, error)
	ChannelClaim(ctx context.Context, id, amount *big.Int, sig []byte, isFinal bool) (*blockchain.TxResult, error)
}

// Control is the daemon side of the claim protocol.
type Control interface {
	ListUnclaimed(ctx context.Context, currentBlock uint64) ([]*Payment, error)
	ListInProgress(ctx context.Context, currentBlock uint64) ([]*Payment, error)
	StartClaim(ctx context.Context, channelID *big.Int) (*Payment, error)
}

// Selection decides which unclaimed channels a cycle settles. Zero value
// selects nothing; set exactly one field.
type Selection struct {
	// Explicit claims only the listed channel ids.
	Explicit []*big.Int
	// All claims every channel with a positive accumulated amount.
	All bool
	// ExpiringWithinBlocks claims channels whose expiration falls within
	// this many blocks of the current head.
	ExpiringWithinBlocks uint64
}

// Outcome records what happened to one channel during a cycle.
type Outcome struct {
	ChannelID *big.Int
	Amount    *big.Int
	TxHash    string
	Reason    string
}

// Report summarizes one claim cycle.
type Report struct {
	// Recovered lists in-progress claims settled before new ones started.
	Recovered []Outcome
	Claimed   []Outcome
	Skipped   []Outcome
	Failed    []Outcome
}

// Runner executes claim cycles against one daemon and one escrow contract.
type Runner struct {
	chain   Chain
	control Control
	log     logger.Logger
	metrics metrics.Recorder
}

// NewRunner builds a claim cycle runner.
func NewRunner(chain Chain, control Control, log logger.Logger, rec metrics.Recorder) *Runner {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Runner{chain: chain, control: control, log: log, metrics: rec}
}

// Run performs one claim cycle: settle any claims left in progress by an
// earlier crash, then start and settle claims for the selected channels.
// A failure while recovering aborts the cycle so nothing new gets frozen on
// top of stuck funds; failures on individual new claims are recorded and the
// cycle continues, since an interrupted claim reappears in the in-progress
// list next run.
func (r *Runner) Run(ctx context.Context, sel Selection) (*Report, error) {
	report := &Report{}
	currentBlock, err := r.chain.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}

	inProgress, err := r.control.ListInProgress(ctx, currentBlock)
	if err != nil {
		return nil, err
	}
	for _, p := range inProgress {
		res, err := r.chain.ChannelClaim(ctx, p.ChannelID, p.SignedAmount, p.Signature, false)
		if err != nil {
			return report, err
		}
		r.metrics.IncCounter(metrics.CounterClaims, nil)
		report.Recovered = append(report.Recovered, Outcome{
			ChannelID: p.ChannelID, Amount: p.SignedAmount, TxHash: res.TxHash.Hex(),
		})
		r.log.Info("recovered in-progress claim", map[string]any{
			"channel": p.ChannelID.String(), "amount": p.SignedAmount.String(),
		})
	}

	unclaimed, err := r.control.ListUnclaimed(ctx, currentBlock)
	if err != nil {
		return report, err
	}
	for _, p := range unclaimed {
		if reason := r.skipReason(ctx, sel, p, currentBlock); reason != "" {
			if reason != "not selected" {
				report.Skipped = append(report.Skipped, Outcome{
					ChannelID: p.ChannelID, Amount: p.SignedAmount, Reason: reason,
				})
			}
			continue
		}
		outcome, err := r.claimOne(ctx, p.ChannelID)
		if err != nil {
			report.Failed = append(report.Failed, Outcome{
				ChannelID: p.ChannelID, Amount: p.SignedAmount, Reason: err.Error(),
			})
			r.log.Error("claim failed", map[string]any{
				"channel": p.ChannelID.String(), "error": err.Error(),
			})
			continue
		}
		report.Claimed = append(report.Claimed, outcome)
	}
	return report, nil
}

// skipReason decides whether an unclaimed payment is settled this cycle.
// Empty means claim it.
func (r *Runner) skipReason(ctx context.Context, sel Selection, p *Payment, currentBlock uint64) string {
	if p.SignedAmount.Sign() <= 0 {
		return "no accumulated amount"
	}
	switch {
	case len(sel.Explicit) > 0:
		if !containsID(sel.Explicit, p.ChannelID) {
			return "not selected"
		}
	case sel.All:
	case sel.ExpiringWithinBlocks > 0:
		ch, err := r.chain.Channel(ctx, p.ChannelID)
		if err != nil {
			return "channel lookup failed: " + err.Error()
		}
		horizon := new(big.Int).SetUint64(currentBlock + sel.ExpiringWithinBlocks)
		if ch.Expiration.Cmp(horizon) > 0 {
			return "not selected"
		}
	default:
		return "not selected"
	}

	// The daemon's nonce must match the chain before freezing a new claim;
	// a mismatch means an earlier claim is still settling.
	ch, err := r.chain.Channel(ctx, p.ChannelID)
	if err != nil {
		return "channel lookup failed: " + err.Error()
	}
	if ch.Nonce.Cmp(p.ChannelNonce) != 0 {
		return "chain nonce " + ch.Nonce.String() + " does not match daemon nonce " + p.ChannelNonce.String()
	}
	return ""
}

func (r *Runner) claimOne(ctx context.Context, channelID *big.Int) (Outcome, error) {
	frozen, err := r.control.StartClaim(ctx, channelID)
	if err != nil {
		return Outcome{}, err
	}
	res, err := r.chain.ChannelClaim(ctx, frozen.ChannelID, frozen.SignedAmount, frozen.Signature, false)
	if err != nil {
		// The frozen payment is not lost: it reappears via ListInProgress.
		return Outcome{}, err
	}
	r.metrics.IncCounter(metrics.CounterClaims, nil)
	return Outcome{
		ChannelID: frozen.ChannelID,
		Amount:    frozen.SignedAmount,
		TxHash:    res.TxHash.Hex(),
	}, nil
}

func containsID(ids []*big.Int, id *big.Int) bool {
	for _, candidate := range ids {
		if candidate.Cmp(id) == 0 {
			return true
		}
	}
	return false
}

// TimeoutChain is the gateway slice needed to reclaim expired channels.
type TimeoutChain interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	Channel(ctx context.Context, id *big.Int) (types.Channel, error)
	ChannelClaimTimeout(ctx context.Context, id *big.Int) (*blockchain.TxResult, error)
}

// ClaimTimeout settles an expired channel back to its sender without daemon
// cooperation. The channel must exist, be past expiration, and still hold
// funds; all three are checked before any transaction is sent.
func ClaimTimeout(ctx context.Context, chain TimeoutChain, channelID *big.Int) (*blockchain.TxResult, error) {
	ch, err := chain.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	currentBlock, err := chain.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	if ch.Expiration.Cmp(new(big.Int).SetUint64(currentBlock)) > 0 {
		return nil, types.E(types.ErrChannelNotExpired,
			"channel %s expires at block %s, head is %d", channelID, ch.Expiration, currentBlock)
	}
	if ch.Value.Sign() <= 0 {
		return nil, types.E(types.ErrChannelInsufficient,
			"channel %s holds no funds to reclaim", channelID)
	}
	return chain.ChannelClaimTimeout(ctx, channelID)
}
