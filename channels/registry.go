// Package channels maintains the local cache of payment channels discovered
// through ChannelOpen events. The cache is a performance hint keyed by escrow
// address; it can be rebuilt from chain events at any time and is persisted
// with tempfile+rename for crash safety.
package channels

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metrics"
	"github.com/singnet/snet-client-go/types"
)

// Scanner is the slice of the chain gateway the registry needs.
type Scanner interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	ScanChannelOpen(ctx context.Context, from, to uint64, filter blockchain.ChannelOpenFilter) ([]blockchain.ChannelOpenEvent, error)
}

// Filter restricts channel queries by equality on the given fields; nil
// fields match anything.
type Filter struct {
	Sender    *common.Address
	Signer    *common.Address
	Recipient *common.Address
	GroupID   *types.GroupID
}

// Registry is the on-disk channel cache plus its scan watermark.
type Registry struct {
	store   *Store
	scanner Scanner
	sender  common.Address
	log     logger.Logger
	metrics metrics.Recorder

	mu sync.Mutex
}

// NewRegistry builds a registry for channels funded by sender. The store
// decides where the cache lives on disk.
func NewRegistry(store *Store, scanner Scanner, sender common.Address, log logger.Logger, rec metrics.Recorder) *Registry {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Registry{store: store, scanner: scanner, sender: sender, log: log, metrics: rec}
}

// sync advances the watermark to the current head, appending newly
// discovered channels. The watermark only moves after every scan window
// succeeded, so a failed scan is retried from the same position.
func (r *Registry) sync(ctx context.Context) (*cacheState, error) {
	state, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	head, err := r.scanner.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	if head <= state.LastScannedBlock {
		return state, nil
	}
	events, err := r.scanner.ScanChannelOpen(ctx, state.LastScannedBlock+1, head,
		blockchain.ChannelOpenFilter{Sender: &r.sender})
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		state.Channels = append(state.Channels, types.ChannelInfo{
			ID:         types.NewBigInt(ev.ChannelID),
			Sender:     ev.Sender,
			Signer:     ev.Signer,
			Recipient:  ev.Recipient,
			GroupID:    ev.GroupID,
			Value:      types.NewBigInt(ev.Value),
			Expiration: types.NewBigInt(ev.Expiration),
		})
	}
	state.LastScannedBlock = head
	if err := r.store.Save(state); err != nil {
		return nil, err
	}
	r.metrics.IncCounter(metrics.CounterCacheRescan, nil)
	if len(events) > 0 {
		r.log.Info("discovered channels", map[string]any{
			"count": len(events), "watermark": head,
		})
	}
	return state, nil
}

// ListAll syncs the cache and returns the channels matching filter.
func (r *Registry) ListAll(ctx context.Context, filter *Filter) ([]types.ChannelInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, err := r.sync(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return append([]types.ChannelInfo(nil), state.Channels...), nil
	}
	var out []types.ChannelInfo
	for _, ch := range state.Channels {
		if filter.matches(&ch) {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *Filter) matches(ch *types.ChannelInfo) bool {
	if f.Sender != nil && ch.Sender != *f.Sender {
		return false
	}
	if f.Signer != nil && ch.Signer != *f.Signer {
		return false
	}
	if f.Recipient != nil && ch.Recipient != *f.Recipient {
		return false
	}
	if f.GroupID != nil && ch.GroupID != *f.GroupID {
		return false
	}
	return true
}

// SelectStatus tags the outcome of a channel selection.
type SelectStatus int

const (
	Found SelectStatus = iota
	NotFound
	Ambiguous
)

// Selection is the tagged result of SelectFor. When Ambiguous, Candidates
// lists the matching channel ids for the caller to disambiguate.
type Selection struct {
	Status     SelectStatus
	Channel    types.ChannelInfo
	Candidates []*big.Int
}

// SelectFor picks a channel suitable for calling the given service group:
// same group id and recipient, signed for by signerAddr. With explicitID the
// match is exact or NotFound. Multiple matches without explicitID yield
// Ambiguous; zero matches yield NotFound so callers decide whether to open.
func (r *Registry) SelectFor(ctx context.Context, group *types.ServiceGroup, signerAddr common.Address, explicitID *big.Int) (Selection, error) {
	if !common.IsHexAddress(group.Recipient) {
		return Selection{}, types.E(types.ErrMetadataSchema,
			"group %q has invalid recipient %q", group.GroupName, group.Recipient)
	}
	recipient := common.HexToAddress(group.Recipient)
	matches, err := r.ListAll(ctx, &Filter{
		Signer:    &signerAddr,
		Recipient: &recipient,
		GroupID:   &group.GroupID,
	})
	if err != nil {
		return Selection{}, err
	}
	if explicitID != nil {
		for _, ch := range matches {
			if ch.ID.Unwrap().Cmp(explicitID) == 0 {
				return Selection{Status: Found, Channel: ch}, nil
			}
		}
		return Selection{Status: NotFound}, nil
	}
	switch len(matches) {
	case 0:
		return Selection{Status: NotFound}, nil
	case 1:
		return Selection{Status: Found, Channel: matches[0]}, nil
	default:
		ids := make([]*big.Int, 0, len(matches))
		for _, ch := range matches {
			ids = append(ids, ch.ID.Unwrap())
		}
		return Selection{Status: Ambiguous, Candidates: ids}, nil
	}
}

// AmbiguousError renders an Ambiguous selection as the typed error callers
// surface to users.
func AmbiguousError(sel Selection) error {
	ids := make([]string, 0, len(sel.Candidates))
	for _, id := range sel.Candidates {
		ids = append(ids, id.String())
	}
	e := types.E(types.ErrChannelAmbiguous,
		"multiple suitable channels: %s; pass an explicit channel id", strings.Join(ids, ", "))
	e.Data = ids
	return e
}
