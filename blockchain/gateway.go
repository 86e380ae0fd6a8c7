// Package blockchain is the sole gate to the chain: typed reads and writes
// against the escrow (MPE), registry, and token contracts, plus the
// ChannelOpen log scan used for channel discovery.
//
// Reads are stateless and retried. Writes are never retried here; a failed
// broadcast surfaces to the caller, which decides idempotence.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	retry "github.com/avast/retry-go"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metrics"
	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

const (
	readAttempts    = 3
	readRetryDelay  = 200 * time.Millisecond
	receiptPollStep = 2 * time.Second
	gasLimitPadPct  = 20
)

// TxPreview describes a transaction before broadcast, for user confirmation.
type TxPreview struct {
	Method   string
	From     common.Address
	To       common.Address
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	Data     []byte
}

// ConfirmFunc gates every write. Returning false aborts before broadcast.
type ConfirmFunc func(p TxPreview) bool

// TxResult is the outcome of a confirmed write: the mined receipt and the
// events the contract emitted.
type TxResult struct {
	TxHash  common.Hash
	Receipt *ethtypes.Receipt
	Events  []Event
}

// Event is one decoded contract event.
type Event struct {
	Name string
	Args map[string]interface{}
}

// Gateway provides typed access to the three marketplace contracts.
type Gateway struct {
	client        *ethclient.Client
	chainID       *big.Int
	signer        *signer.Signer
	mpe           common.Address
	registry      common.Address
	token         common.Address
	confirm       ConfirmFunc
	confirmations uint64
	log           logger.Logger
	metrics       metrics.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithConfirm installs a confirmation gate for writes.
func WithConfirm(f ConfirmFunc) Option {
	return func(g *Gateway) { g.confirm = f }
}

// WithLogger installs a logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithMetrics installs a metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = r }
}

// WithConfirmations makes writes wait until the mined block has n
// confirmations before returning. Values below 2 keep the default behavior
// of returning on the first receipt.
func WithConfirmations(n uint64) Option {
	return func(g *Gateway) { g.confirmations = n }
}

// Dial connects to the node and validates the contract addresses.
func Dial(ctx context.Context, rpcURL string, mpe, registry, token string, s *signer.Signer, opts ...Option) (*Gateway, error) {
	for _, a := range []string{mpe, registry, token} {
		if !common.IsHexAddress(a) {
			return nil, types.E(types.ErrChainInvalidAddr, "invalid contract address %q", a)
		}
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, types.E(types.ErrChainUnreachable, "dial %s: %v", rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, types.E(types.ErrChainUnreachable, "chain id: %v", err)
	}
	g := &Gateway{
		client:   client,
		chainID:  chainID,
		signer:   s,
		mpe:      common.HexToAddress(mpe),
		registry: common.HexToAddress(registry),
		token:    common.HexToAddress(token),
		confirm:  func(TxPreview) bool { return true },
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close releases the underlying RPC connection.
func (g *Gateway) Close() {
	g.client.Close()
}

// MPEAddress returns the escrow contract address this gateway talks to.
func (g *Gateway) MPEAddress() common.Address {
	return g.mpe
}

// RegistryAddress returns the registry contract address.
func (g *Gateway) RegistryAddress() common.Address {
	return g.registry
}

// ChainID returns the connected chain's id.
func (g *Gateway) ChainID() *big.Int {
	return new(big.Int).Set(g.chainID)
}

// CurrentBlock returns the head block number.
func (g *Gateway) CurrentBlock(ctx context.Context) (uint64, error) {
	var n uint64
	err := g.retryRead(ctx, func() error {
		var err error
		n, err = g.client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, types.E(types.ErrChainUnreachable, "block number: %v", err)
	}
	return n, nil
}

// call performs a retried eth_call and unpacks the outputs.
func (g *Gateway) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var out []interface{}
	err = g.retryRead(ctx, func() error {
		raw, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return err
		}
		out, err = contractABI.Unpack(method, raw)
		return err
	})
	if err != nil {
		return nil, types.E(types.ErrChainUnreachable, "%s: %v", method, err)
	}
	g.metrics.IncCounter(metrics.CounterChainReads, nil)
	return out, nil
}

func (g *Gateway) retryRead(ctx context.Context, fn func() error) error {
	return retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return retry.Unrecoverable(err)
		}
		return fn()
	}, retry.Attempts(readAttempts), retry.Delay(readRetryDelay), retry.LastErrorOnly(true))
}

// transact builds, confirms, signs, broadcasts, and awaits one write.
func (g *Gateway) transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (*TxResult, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	from := g.signer.Address()

	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, types.E(types.ErrChainUnreachable, "pending nonce: %v", err)
	}
	suggested, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, types.E(types.ErrChainUnreachable, "gas price: %v", err)
	}
	gasPrice := PadGasPrice(suggested)

	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, classifySendError(method, err)
	}
	gasLimit += gasLimit * gasLimitPadPct / 100

	preview := TxPreview{
		Method:   method,
		From:     from,
		To:       to,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: gasLimit,
		Data:     data,
	}
	if !g.confirm(preview) {
		return nil, types.E(types.ErrStrategyRefused, "%s: transaction not confirmed", method)
	}

	tx := ethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := g.signer.SignTx(tx, g.chainID)
	if err != nil {
		return nil, err
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return nil, classifySendError(method, err)
	}
	g.metrics.IncCounter(metrics.CounterChainTx, nil)
	g.log.Info("transaction broadcast", map[string]any{
		"method": method, "tx": signed.Hash().Hex(), "gas_price": gasPrice.String(),
	})

	receipt, err := g.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return nil, types.E(types.ErrChainReverted, "%s reverted in tx %s", method, signed.Hash().Hex())
	}
	return &TxResult{
		TxHash:  signed.Hash(),
		Receipt: receipt,
		Events:  decodeEvents(contractABI, receipt.Logs, to),
	}, nil
}

// waitReceipt polls for the receipt. When the caller cancels after the
// broadcast, the transaction may still mine; the error carries the hash and
// nothing is rolled back.
func (g *Gateway) waitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollStep)
	defer ticker.Stop()
	for {
		receipt, err := g.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if err := g.waitConfirmations(ctx, receipt); err != nil {
				return nil, err
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			g.log.Warn("receipt poll failed", map[string]any{"tx": hash.Hex(), "err": err.Error()})
		}
		select {
		case <-ctx.Done():
			e := types.E(types.ErrTxPending, "canceled awaiting receipt of %s", hash.Hex())
			e.Data = hash.Hex()
			return nil, e
		case <-ticker.C:
		}
	}
}

// waitConfirmations blocks until the receipt's block is buried under the
// configured confirmation depth. A reorg past the receipt surfaces on the
// caller's next read; re-checking inclusion here is not worth the extra RPCs.
func (g *Gateway) waitConfirmations(ctx context.Context, receipt *ethtypes.Receipt) error {
	if g.confirmations < 2 {
		return nil
	}
	target := receipt.BlockNumber.Uint64() + g.confirmations - 1
	ticker := time.NewTicker(receiptPollStep)
	defer ticker.Stop()
	for {
		head, err := g.client.BlockNumber(ctx)
		if err == nil && head >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			e := types.E(types.ErrTxPending, "canceled awaiting confirmations of %s", receipt.TxHash.Hex())
			e.Data = receipt.TxHash.Hex()
			return e
		case <-ticker.C:
		}
	}
}

func classifySendError(method string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "nonce too low") || strings.Contains(msg, "replacement transaction"):
		return types.E(types.ErrChainNonceConflict, "%s: %v", method, err)
	case strings.Contains(msg, "underpriced"):
		return types.E(types.ErrChainGasUnderprice, "%s: %v", method, err)
	case strings.Contains(msg, "revert") || strings.Contains(msg, "execution reverted"):
		return types.E(types.ErrChainReverted, "%s: %v", method, err)
	default:
		return types.E(types.ErrChainUnreachable, "%s: %v", method, err)
	}
}

func decodeEvents(contractABI abi.ABI, logs []*ethtypes.Log, source common.Address) []Event {
	var events []Event
	for _, l := range logs {
		if l.Address != source || len(l.Topics) == 0 {
			continue
		}
		ev, err := contractABI.EventByID(l.Topics[0])
		if err != nil {
			continue
		}
		args := map[string]interface{}{}
		if err := contractABI.UnpackIntoMap(args, ev.Name, l.Data); err != nil {
			continue
		}
		indexed := make(abi.Arguments, 0)
		for _, in := range ev.Inputs {
			if in.Indexed {
				indexed = append(indexed, in)
			}
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
			continue
		}
		events = append(events, Event{Name: ev.Name, Args: args})
	}
	return events
}

// StringToBytes32 encodes an identifier into a right-NUL-padded bytes32,
// the registry's key format.
func StringToBytes32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) > 32 {
		return out, types.E(types.ErrChainInvalidAddr, "identifier %q exceeds 32 bytes", s)
	}
	copy(out[:], s)
	return out, nil
}

// Bytes32ToString strips the NUL padding of a registry identifier.
func Bytes32ToString(b [32]byte) string {
	return strings.TrimRight(string(b[:]), "\x00")
}
