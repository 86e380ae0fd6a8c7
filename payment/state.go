package payment

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"

	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

const channelStateMethod = "/escrow.PaymentChannelStateService/GetChannelState"

// StateClient queries the daemon's channel-state service with signed
// requests.
type StateClient struct {
	conn   grpc.ClientConnInterface
	signer *signer.Signer
	mpe    common.Address
}

// NewStateClient builds a state client over an established daemon connection.
func NewStateClient(conn grpc.ClientConnInterface, s *signer.Signer, mpe common.Address) *StateClient {
	return &StateClient{conn: conn, signer: s, mpe: mpe}
}

// GetChannelState fetches the daemon's view of the channel. The request is
// signed over (prefix ‖ mpe ‖ channelID ‖ currentBlock) so the daemon can
// restrict state queries to the channel's signer.
func (c *StateClient) GetChannelState(ctx context.Context, channelID *big.Int, currentBlock uint64) (*ChannelStateReply, error) {
	sig, err := c.signer.SignControl(signer.GetChannelStatePrefix, c.mpe,
		signer.BigTo32(channelID),
		signer.BigTo32(new(big.Int).SetUint64(currentBlock)),
	)
	if err != nil {
		return nil, err
	}
	req := &ChannelStateRequest{
		ChannelID:    signer.BigTo32(channelID),
		Signature:    sig,
		CurrentBlock: currentBlock,
	}
	var reply ChannelStateReply
	if err := c.conn.Invoke(ctx, channelStateMethod, req, &reply, grpc.ForceCodec(Codec{})); err != nil {
		return nil, types.E(types.ErrServiceUnreachable, "get_channel_state: %v", err)
	}
	return &reply, nil
}
