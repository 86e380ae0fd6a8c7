package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

// State is the reconciled view of one channel: the daemon's report checked
// against the chain, with the safely spendable balance.
type State struct {
	CurrentNonce         *big.Int
	CurrentSignedAmount  *big.Int
	OldNonceSignedAmount *big.Int // nil when the daemon reported none
	Unspent              *big.Int
	// Warning is set when the unspent figure is a conservative estimate
	// (older daemon that omits the previous nonce's amount mid-claim).
	Warning string
}

// Reconciler defends against a lying or lagging daemon. Every signature the
// daemon returns must be this client's own; the unspent balance is derived
// from the relation between the daemon's nonce and the chain's.
type Reconciler struct {
	signer *signer.Signer
	mpe    common.Address
	log    logger.Logger
}

// NewReconciler builds a reconciler for one escrow contract.
func NewReconciler(s *signer.Signer, mpe common.Address, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Reconciler{signer: s, mpe: mpe, log: log}
}

// Reconcile cross-checks the daemon's reply against the on-chain channel.
// Tampered signatures and nonce desynchronization are fatal.
func (r *Reconciler) Reconcile(chainCh types.Channel, reply *ChannelStateReply) (*State, error) {
	state := &State{
		CurrentNonce:        new(big.Int).SetBytes(reply.CurrentNonce),
		CurrentSignedAmount: new(big.Int).SetBytes(reply.CurrentSignedAmount),
	}

	// A positive signed amount must carry this client's own signature over
	// exactly the tuple the daemon reports.
	if state.CurrentSignedAmount.Sign() > 0 {
		digest := signer.VoucherDigest(r.mpe, chainCh.ID, state.CurrentNonce, state.CurrentSignedAmount)
		if err := r.signer.VerifyOwn(digest, reply.CurrentSignature); err != nil {
			return nil, err
		}
	}
	if len(reply.OldNonceSignedAmount) > 0 {
		old := new(big.Int).SetBytes(reply.OldNonceSignedAmount)
		state.OldNonceSignedAmount = old
		if old.Sign() > 0 {
			prevNonce := new(big.Int).Sub(state.CurrentNonce, big.NewInt(1))
			digest := signer.VoucherDigest(r.mpe, chainCh.ID, prevNonce, old)
			if err := r.signer.VerifyOwn(digest, reply.OldNonceSignature); err != nil {
				return nil, err
			}
		}
	}

	chainNonce := chainCh.Nonce
	nextNonce := new(big.Int).Add(chainNonce, big.NewInt(1))
	switch {
	case state.CurrentNonce.Cmp(chainNonce) == 0:
		state.Unspent = new(big.Int).Sub(chainCh.Value, state.CurrentSignedAmount)

	case state.CurrentNonce.Cmp(nextNonce) == 0 && state.OldNonceSignedAmount != nil:
		// The daemon started a claim the chain has not yet observed; both
		// the claimed amount and the new nonce's spending still come out of
		// the current on-chain value.
		state.Unspent = new(big.Int).Sub(chainCh.Value, state.OldNonceSignedAmount)
		state.Unspent.Sub(state.Unspent, state.CurrentSignedAmount)

	case state.CurrentNonce.Cmp(nextNonce) == 0:
		state.Unspent = new(big.Int).Sub(chainCh.Value, state.CurrentSignedAmount)
		state.Warning = "daemon is one nonce ahead and omitted the previous amount; unspent is an upper bound"
		r.log.Warn("conservative unspent estimate", map[string]any{
			"channel": chainCh.ID.String(), "daemon_nonce": state.CurrentNonce.String(),
		})

	default:
		return nil, types.E(types.ErrStateDesync,
			"daemon nonce %s cannot follow chain nonce %s for channel %s",
			state.CurrentNonce, chainNonce, chainCh.ID)
	}
	return state, nil
}
