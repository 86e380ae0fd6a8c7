package payment

import (
	"context"
	"strconv"

	"google.golang.org/grpc/metadata"

	"github.com/singnet/snet-client-go/types"
)

// Strategy decorates an outbound RPC context with payment metadata.
// Implementations are the escrow voucher path and the free-call token path.
//
// Per request: call Refresh first, then wrap the context with GRPCMetadata
// and invoke the RPC with it.
type Strategy interface {
	GRPCMetadata(ctx context.Context) context.Context
	Refresh(ctx context.Context) error
}

// EscrowStrategy attaches an already constructed voucher. Refresh is a no-op:
// voucher construction is the pipeline's job, one voucher per call.
type EscrowStrategy struct {
	Voucher *types.Voucher
}

func (s *EscrowStrategy) GRPCMetadata(ctx context.Context) context.Context {
	v := s.Voucher
	return metadata.AppendToOutgoingContext(ctx,
		PaymentTypeHeader, PaymentTypeEscrow,
		ClientTypeHeader, ClientType,
		PaymentChannelIDHeader, v.ChannelID.String(),
		PaymentChannelNonceHeader, v.Nonce.String(),
		PaymentChannelAmountHeader, v.Amount.String(),
		PaymentChannelSignatureHeader, string(v.Signature),
		PaymentMPEAddressHeader, v.MPEAddress.Hex(),
	)
}

func (s *EscrowStrategy) Refresh(context.Context) error {
	return nil
}

// FreeCallStrategy attaches a daemon-issued free-call token and a signature
// binding it to the current block.
type FreeCallStrategy struct {
	UserID           string
	Token            []byte
	TokenExpiryBlock uint64
	CurrentBlock     uint64
	Signature        []byte
}

func (s *FreeCallStrategy) GRPCMetadata(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		PaymentTypeHeader, PaymentTypeFreeCall,
		ClientTypeHeader, ClientType,
		FreeCallUserIDHeader, s.UserID,
		FreeCallAuthTokenHeader, string(s.Token),
		FreeCallTokenExpiryHeader, strconv.FormatUint(s.TokenExpiryBlock, 10),
		CurrentBlockHeader, strconv.FormatUint(s.CurrentBlock, 10),
		PaymentChannelSignatureHeader, string(s.Signature),
	)
}

func (s *FreeCallStrategy) Refresh(context.Context) error {
	return nil
}
