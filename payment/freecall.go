package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/signer"
)

// NewFreeCallStrategy signs a free-call request for the given daemon token.
// The signed message is, in order: the free-trial prefix, the user id, the
// escrow address, the current block, and the raw token bytes. The prefix
// literal predates the control-plane naming pattern and is kept as-is.
func NewFreeCallStrategy(s *signer.Signer, mpe common.Address, userID string, token []byte, tokenExpiryBlock, currentBlock uint64) (*FreeCallStrategy, error) {
	sig, err := s.SignMessage(
		[]byte(signer.FreeCallPrefix),
		[]byte(userID),
		mpe.Bytes(),
		signer.BigTo32(new(big.Int).SetUint64(currentBlock)),
		token,
	)
	if err != nil {
		return nil, err
	}
	return &FreeCallStrategy{
		UserID:           userID,
		Token:            token,
		TokenExpiryBlock: tokenExpiryBlock,
		CurrentBlock:     currentBlock,
		Signature:        sig,
	}, nil
}
