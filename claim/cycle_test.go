package claim

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/types"
)

type fakeChain struct {
	head     uint64
	channels map[int64]types.Channel
	claims   []*big.Int
	claimErr error
}

func (f *fakeChain) CurrentBlock(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) Channel(_ context.Context, id *big.Int) (types.Channel, error) {
	ch, ok := f.channels[id.Int64()]
	if !ok {
		return types.Channel{}, types.E(types.ErrChannelNotFound, "channel %s", id)
	}
	return ch, nil
}

func (f *fakeChain) ChannelClaim(_ context.Context, id, _ *big.Int, _ []byte, _ bool) (*blockchain.TxResult, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.claims = append(f.claims, id)
	return &blockchain.TxResult{TxHash: common.HexToHash("0xabc")}, nil
}

func (f *fakeChain) ChannelClaimTimeout(_ context.Context, id *big.Int) (*blockchain.TxResult, error) {
	f.claims = append(f.claims, id)
	return &blockchain.TxResult{TxHash: common.HexToHash("0xdef")}, nil
}

type fakeControl struct {
	inProgress []*Payment
	unclaimed  []*Payment
	started    []*big.Int
	startErr   error
}

func (f *fakeControl) ListInProgress(context.Context, uint64) ([]*Payment, error) {
	return f.inProgress, nil
}

func (f *fakeControl) ListUnclaimed(context.Context, uint64) ([]*Payment, error) {
	return f.unclaimed, nil
}

func (f *fakeControl) StartClaim(_ context.Context, id *big.Int) (*Payment, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, id)
	for _, p := range f.unclaimed {
		if p.ChannelID.Cmp(id) == 0 {
			return p, nil
		}
	}
	return nil, types.E(types.ErrChannelNotFound, "channel %s", id)
}

func pay(id, nonce, amount int64) *Payment {
	return &Payment{
		ChannelID:    big.NewInt(id),
		ChannelNonce: big.NewInt(nonce),
		SignedAmount: big.NewInt(amount),
		Signature:    make([]byte, 65),
	}
}

func chainWith(head uint64, entries map[int64]types.Channel) *fakeChain {
	return &fakeChain{head: head, channels: entries}
}

func chanAt(nonce, value, expiration int64) types.Channel {
	return types.Channel{
		Nonce:      big.NewInt(nonce),
		Value:      big.NewInt(value),
		Expiration: big.NewInt(expiration),
	}
}

func TestRunRecoversInProgressFirst(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{1: chanAt(0, 500, 5000)})
	control := &fakeControl{
		inProgress: []*Payment{pay(9, 0, 300)},
		unclaimed:  []*Payment{pay(1, 0, 100)},
	}
	r := NewRunner(chain, control, nil, nil)

	report, err := r.Run(context.Background(), Selection{All: true})
	require.NoError(t, err)
	require.Len(t, report.Recovered, 1)
	assert.Equal(t, int64(9), report.Recovered[0].ChannelID.Int64())
	require.Len(t, report.Claimed, 1)
	assert.Equal(t, int64(1), report.Claimed[0].ChannelID.Int64())

	// Recovery settles before any new claim is started.
	require.Len(t, chain.claims, 2)
	assert.Equal(t, int64(9), chain.claims[0].Int64())
}

func TestRunAbortsWhenRecoveryFails(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{1: chanAt(0, 500, 5000)})
	chain.claimErr = errors.New("node down")
	control := &fakeControl{
		inProgress: []*Payment{pay(9, 0, 300)},
		unclaimed:  []*Payment{pay(1, 0, 100)},
	}
	r := NewRunner(chain, control, nil, nil)

	_, err := r.Run(context.Background(), Selection{All: true})
	require.Error(t, err)
	assert.Empty(t, control.started)
}

func TestRunSkipsNonceMismatch(t *testing.T) {
	// Chain already observed the claim the daemon still reports at nonce 0.
	chain := chainWith(1000, map[int64]types.Channel{1: chanAt(1, 500, 5000)})
	control := &fakeControl{unclaimed: []*Payment{pay(1, 0, 100)}}
	r := NewRunner(chain, control, nil, nil)

	report, err := r.Run(context.Background(), Selection{All: true})
	require.NoError(t, err)
	assert.Empty(t, report.Claimed)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "nonce")
	assert.Empty(t, control.started)
}

func TestRunSkipsZeroAmounts(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{1: chanAt(0, 500, 5000)})
	control := &fakeControl{unclaimed: []*Payment{pay(1, 0, 0)}}
	r := NewRunner(chain, control, nil, nil)

	report, err := r.Run(context.Background(), Selection{All: true})
	require.NoError(t, err)
	assert.Empty(t, report.Claimed)
	require.Len(t, report.Skipped, 1)
}

func TestRunExplicitSelection(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{
		1: chanAt(0, 500, 5000),
		2: chanAt(0, 500, 5000),
	})
	control := &fakeControl{unclaimed: []*Payment{pay(1, 0, 100), pay(2, 0, 200)}}
	r := NewRunner(chain, control, nil, nil)

	report, err := r.Run(context.Background(), Selection{Explicit: []*big.Int{big.NewInt(2)}})
	require.NoError(t, err)
	require.Len(t, report.Claimed, 1)
	assert.Equal(t, int64(2), report.Claimed[0].ChannelID.Int64())
	// Unselected channels are not reported as skipped noise.
	assert.Empty(t, report.Skipped)
}

func TestRunExpiringSelection(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{
		1: chanAt(0, 500, 1100),    // within 500 blocks
		2: chanAt(0, 500, 900_000), // far out
	})
	control := &fakeControl{unclaimed: []*Payment{pay(1, 0, 100), pay(2, 0, 200)}}
	r := NewRunner(chain, control, nil, nil)

	report, err := r.Run(context.Background(), Selection{ExpiringWithinBlocks: 500})
	require.NoError(t, err)
	require.Len(t, report.Claimed, 1)
	assert.Equal(t, int64(1), report.Claimed[0].ChannelID.Int64())
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{
		1: chanAt(0, 500, 5000),
		2: chanAt(0, 500, 5000),
	})
	control := &fakeControl{
		unclaimed: []*Payment{pay(1, 0, 100), pay(2, 0, 200)},
		startErr:  errors.New("daemon refused"),
	}
	r := NewRunner(chain, control, nil, nil)

	report, err := r.Run(context.Background(), Selection{All: true})
	require.NoError(t, err)
	assert.Empty(t, report.Claimed)
	assert.Len(t, report.Failed, 2)
}

func TestClaimTimeoutPreChecks(t *testing.T) {
	chain := chainWith(1000, map[int64]types.Channel{
		1: chanAt(0, 500, 5000), // not yet expired
		2: chanAt(0, 0, 100),    // expired but empty
		3: chanAt(0, 500, 100),  // expired with funds
	})

	_, err := ClaimTimeout(context.Background(), chain, big.NewInt(1))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrChannelNotExpired))

	_, err = ClaimTimeout(context.Background(), chain, big.NewInt(2))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrChannelInsufficient))

	res, err := ClaimTimeout(context.Background(), chain, big.NewInt(3))
	require.NoError(t, err)
	assert.NotNil(t, res)

	// Neither failing pre-check broadcast anything.
	require.Len(t, chain.claims, 1)
	assert.Equal(t, int64(3), chain.claims[0].Int64())
}
