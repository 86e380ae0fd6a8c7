package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/types"
)

// Channel reads the on-chain channel record. A zero sender address means the
// channel does not exist.
func (g *Gateway) Channel(ctx context.Context, id *big.Int) (types.Channel, error) {
	out, err := g.call(ctx, g.mpe, mpeABI, "channels", id)
	if err != nil {
		return types.Channel{}, err
	}
	ch := types.Channel{
		ID:         new(big.Int).Set(id),
		Nonce:      out[0].(*big.Int),
		Sender:     out[1].(common.Address),
		Signer:     out[2].(common.Address),
		Recipient:  out[3].(common.Address),
		GroupID:    out[4].([32]byte),
		Value:      out[5].(*big.Int),
		Expiration: out[6].(*big.Int),
	}
	if ch.Sender == (common.Address{}) {
		return types.Channel{}, types.E(types.ErrChannelNotFound, "channel %s does not exist", id)
	}
	return ch, nil
}

// EscrowBalance reads the MPE balance of addr, in cogs.
func (g *Gateway) EscrowBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	out, err := g.call(ctx, g.mpe, mpeABI, "balances", addr)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// OpenChannel opens a new payment channel funded from the sender's MPE
// balance and returns the id assigned by the contract.
func (g *Gateway) OpenChannel(ctx context.Context, signerAddr, recipient common.Address, groupID types.GroupID, value, expiration *big.Int) (*big.Int, *TxResult, error) {
	res, err := g.transact(ctx, g.mpe, mpeABI, "openChannel",
		signerAddr, recipient, [32]byte(groupID), value, expiration)
	if err != nil {
		return nil, nil, err
	}
	for _, ev := range res.Events {
		if ev.Name == "ChannelOpen" {
			if id, ok := ev.Args["channelId"].(*big.Int); ok {
				return id, res, nil
			}
		}
	}
	return nil, res, types.E(types.ErrChainReverted,
		"openChannel mined without ChannelOpen event in tx %s", res.TxHash.Hex())
}

// ChannelAddFunds locks additional cogs into an open channel.
func (g *Gateway) ChannelAddFunds(ctx context.Context, id, amount *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "channelAddFunds", id, amount)
}

// ChannelExtend moves the channel expiration forward.
func (g *Gateway) ChannelExtend(ctx context.Context, id, newExpiration *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "channelExtend", id, newExpiration)
}

// ChannelExtendAndAddFunds extends and tops up in one transaction.
func (g *Gateway) ChannelExtendAndAddFunds(ctx context.Context, id, newExpiration, amount *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "channelExtendAndAddFunds", id, newExpiration, amount)
}

// ChannelClaim redeems a voucher on-chain. The planned amount duplicates the
// actual amount on the non-final path.
func (g *Gateway) ChannelClaim(ctx context.Context, id, amount *big.Int, sig []byte, isFinal bool) (*TxResult, error) {
	if len(sig) != 65 {
		return nil, types.E(types.ErrStateTampered, "claim signature must be 65 bytes, got %d", len(sig))
	}
	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v := sig[64]
	if v < 27 {
		v += 27
	}
	return g.transact(ctx, g.mpe, mpeABI, "channelClaim", id, amount, amount, v, r, s, isFinal)
}

// ChannelClaimTimeout reclaims an expired channel's remaining value for the
// sender. The expiry and value pre-checks belong to the caller, which can
// fail without sending a transaction.
func (g *Gateway) ChannelClaimTimeout(ctx context.Context, id *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "channelClaimTimeout", id)
}

// Deposit moves approved tokens into the caller's MPE balance.
func (g *Gateway) Deposit(ctx context.Context, amount *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "deposit", amount)
}

// Withdraw moves cogs from the caller's MPE balance back to tokens.
func (g *Gateway) Withdraw(ctx context.Context, amount *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "withdraw", amount)
}

// TransferEscrow moves cogs between MPE balances without leaving escrow.
func (g *Gateway) TransferEscrow(ctx context.Context, to common.Address, amount *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.mpe, mpeABI, "transfer", to, amount)
}
