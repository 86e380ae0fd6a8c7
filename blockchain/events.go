package blockchain

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/singnet/snet-client-go/types"
)

// ScanWindow is the default block-range window for log filtering, sized to
// respect node-side range limits.
const ScanWindow uint64 = 5000

// ChannelOpenFilter restricts a ChannelOpen scan by topic-indexed fields.
// Nil fields match anything.
type ChannelOpenFilter struct {
	Sender    *common.Address
	Recipient *common.Address
	GroupID   *types.GroupID
}

// ChannelOpenEvent is one decoded ChannelOpen log.
type ChannelOpenEvent struct {
	ChannelID  *big.Int
	Nonce      *big.Int
	Sender     common.Address
	Signer     common.Address
	Recipient  common.Address
	GroupID    types.GroupID
	Value      *big.Int
	Expiration *big.Int
	Block      uint64
}

// ScanChannelOpen enumerates ChannelOpen events in [from, to], partitioned
// into windows. A window failure aborts the scan so the caller's watermark
// only advances after every window succeeded. Ordering between windows is
// preserved; within a window the node's block/index order is kept.
func (g *Gateway) ScanChannelOpen(ctx context.Context, from, to uint64, filter ChannelOpenFilter) ([]ChannelOpenEvent, error) {
	if from > to {
		return nil, nil
	}
	event := mpeABI.Events["ChannelOpen"]
	topics := [][]common.Hash{{event.ID}}
	for _, f := range []*common.Address{filter.Sender, filter.Recipient} {
		if f != nil {
			topics = append(topics, []common.Hash{common.BytesToHash(f.Bytes())})
		} else {
			topics = append(topics, nil)
		}
	}
	if filter.GroupID != nil {
		topics = append(topics, []common.Hash{common.BytesToHash(filter.GroupID[:])})
	}

	var events []ChannelOpenEvent
	for _, w := range scanWindows(from, to, ScanWindow) {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(w.from),
			ToBlock:   new(big.Int).SetUint64(w.to),
			Addresses: []common.Address{g.mpe},
			Topics:    topics,
		}
		var logs []ethtypes.Log
		err := g.retryRead(ctx, func() error {
			raw, err := g.client.FilterLogs(ctx, query)
			if err != nil {
				return err
			}
			logs = raw
			return nil
		})
		if err != nil {
			return nil, types.E(types.ErrChainUnreachable,
				"log scan window [%d,%d]: %v", w.from, w.to, err)
		}
		for i := range logs {
			ev, err := decodeChannelOpen(&logs[i])
			if err != nil {
				g.log.Warn("undecodable ChannelOpen log", map[string]any{
					"block": logs[i].BlockNumber, "err": err.Error(),
				})
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

type window struct{ from, to uint64 }

func scanWindows(from, to, size uint64) []window {
	var out []window
	for start := from; start <= to; start += size {
		end := start + size - 1
		if end > to {
			end = to
		}
		out = append(out, window{from: start, to: end})
		if end == to {
			break
		}
	}
	return out
}

func decodeChannelOpen(l *ethtypes.Log) (ChannelOpenEvent, error) {
	var ev ChannelOpenEvent
	args := map[string]interface{}{}
	if err := mpeABI.UnpackIntoMap(args, "ChannelOpen", l.Data); err != nil {
		return ev, err
	}
	if len(l.Topics) != 4 {
		return ev, types.E(types.ErrChainUnreachable, "ChannelOpen log with %d topics", len(l.Topics))
	}
	ev.ChannelID = args["channelId"].(*big.Int)
	ev.Nonce = args["nonce"].(*big.Int)
	ev.Signer = args["signer"].(common.Address)
	ev.Value = args["amount"].(*big.Int)
	ev.Expiration = args["expiration"].(*big.Int)
	ev.Sender = common.BytesToAddress(l.Topics[1].Bytes())
	ev.Recipient = common.BytesToAddress(l.Topics[2].Bytes())
	copy(ev.GroupID[:], l.Topics[3].Bytes())
	ev.Block = l.BlockNumber
	return ev, nil
}
