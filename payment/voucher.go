package payment

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

// Engine constructs vouchers. It holds no spending state of its own: the
// amount only advances through fresh daemon state, so calling it twice with
// the same inputs yields the same voucher.
type Engine struct {
	signer *signer.Signer
	mpe    common.Address

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine builds a voucher engine bound to one escrow contract.
func NewEngine(s *signer.Signer, mpe common.Address) *Engine {
	return &Engine{signer: s, mpe: mpe, locks: map[string]*sync.Mutex{}}
}

// NextVoucher signs the voucher paying price on top of the reconciled state:
// same nonce, cumulative amount advanced by price.
func (e *Engine) NextVoucher(channelID *big.Int, state *State, price *big.Int) (*types.Voucher, error) {
	amount := new(big.Int).Add(state.CurrentSignedAmount, price)
	sig, err := e.signer.SignVoucher(e.mpe, channelID, state.CurrentNonce, amount)
	if err != nil {
		return nil, err
	}
	return &types.Voucher{
		MPEAddress: e.mpe,
		ChannelID:  new(big.Int).Set(channelID),
		Nonce:      new(big.Int).Set(state.CurrentNonce),
		Amount:     amount,
		Signature:  sig,
	}, nil
}

// LockChannel serializes voucher issuance for one channel. Two concurrent
// calls on the same channel would otherwise sign the same (nonce, amount)
// and the daemon would honor only one, wasting the other's funds.
func (e *Engine) LockChannel(channelID *big.Int) (unlock func()) {
	key := channelID.String()
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}
