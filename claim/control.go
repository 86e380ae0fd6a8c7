// Package claim implements the provider-side settlement protocol: listing
// accumulated payments held by the daemon, moving them into the in-progress
// set, and submitting the signed claims on chain.
package claim

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"

	"github.com/singnet/snet-client-go/payment"
	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

const (
	listUnclaimedMethod  = "/escrow.ProviderControlService/GetListUnclaimed"
	listInProgressMethod = "/escrow.ProviderControlService/GetListInProgress"
	startClaimMethod     = "/escrow.ProviderControlService/StartClaim"
)

// Payment is one accumulated payment as reported by the daemon, decoded from
// the wire form.
type Payment struct {
	ChannelID    *big.Int
	ChannelNonce *big.Int
	SignedAmount *big.Int
	Signature    []byte
}

// ControlClient talks to one daemon's provider control service. All requests
// are signed with the provider's key; the daemon rejects queries from anyone
// but the payment group's configured address.
type ControlClient struct {
	conn   grpc.ClientConnInterface
	signer *signer.Signer
	mpe    common.Address
}

// NewControlClient builds a control client over an established daemon
// connection.
func NewControlClient(conn grpc.ClientConnInterface, s *signer.Signer, mpe common.Address) *ControlClient {
	return &ControlClient{conn: conn, signer: s, mpe: mpe}
}

// ListUnclaimed returns payments the daemon has accumulated but not yet
// moved into a claim.
func (c *ControlClient) ListUnclaimed(ctx context.Context, currentBlock uint64) ([]*Payment, error) {
	return c.list(ctx, listUnclaimedMethod, signer.ListUnclaimedPrefix, currentBlock)
}

// ListInProgress returns payments whose claim was started but whose on-chain
// transaction has not been confirmed to the daemon. These survive provider
// crashes and must be settled before new claims start.
func (c *ControlClient) ListInProgress(ctx context.Context, currentBlock uint64) ([]*Payment, error) {
	return c.list(ctx, listInProgressMethod, signer.ListInProgressPrefix, currentBlock)
}

func (c *ControlClient) list(ctx context.Context, method, prefix string, currentBlock uint64) ([]*Payment, error) {
	sig, err := c.signer.SignControl(prefix, c.mpe,
		signer.BigTo32(new(big.Int).SetUint64(currentBlock)))
	if err != nil {
		return nil, err
	}
	req := &payment.GetPaymentsListRequest{
		MPEAddress:   c.mpe.Hex(),
		CurrentBlock: currentBlock,
		Signature:    sig,
	}
	var reply payment.PaymentsListReply
	if err := c.conn.Invoke(ctx, method, req, &reply, grpc.ForceCodec(payment.Codec{})); err != nil {
		return nil, types.E(types.ErrServiceUnreachable, "%s: %v", method, err)
	}
	return decodePayments(reply.Payments), nil
}

// StartClaim asks the daemon to freeze the channel's current payment and
// advance its serving nonce, returning the frozen payment to submit on
// chain.
func (c *ControlClient) StartClaim(ctx context.Context, channelID *big.Int) (*Payment, error) {
	id := signer.BigTo32(channelID)
	sig, err := c.signer.SignControl(signer.StartClaimPrefix, c.mpe, id)
	if err != nil {
		return nil, err
	}
	req := &payment.StartClaimRequest{
		MPEAddress: c.mpe.Hex(),
		ChannelID:  id,
		Signature:  sig,
	}
	var reply payment.PaymentReply
	if err := c.conn.Invoke(ctx, startClaimMethod, req, &reply, grpc.ForceCodec(payment.Codec{})); err != nil {
		return nil, types.E(types.ErrServiceUnreachable, "start_claim: %v", err)
	}
	decoded := decodePayment(&reply)
	if decoded.SignedAmount.Sign() <= 0 {
		return nil, types.E(types.ErrStateDesync,
			"daemon froze a claim of %s cogs for channel %s", decoded.SignedAmount, channelID)
	}
	return decoded, nil
}

func decodePayments(raw []*payment.PaymentReply) []*Payment {
	out := make([]*Payment, 0, len(raw))
	for _, r := range raw {
		out = append(out, decodePayment(r))
	}
	return out
}

func decodePayment(r *payment.PaymentReply) *Payment {
	return &Payment{
		ChannelID:    new(big.Int).SetBytes(r.ChannelID),
		ChannelNonce: new(big.Int).SetBytes(r.ChannelNonce),
		SignedAmount: new(big.Int).SetBytes(r.SignedAmount),
		Signature:    r.Signature,
	}
}
