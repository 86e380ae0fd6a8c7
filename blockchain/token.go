package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenBalance reads the ERC-20 token balance of addr.
func (g *Gateway) TokenBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	out, err := g.call(ctx, g.token, tokenABI, "balanceOf", addr)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Allowance reads how many tokens the escrow contract may pull from owner.
func (g *Gateway) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := g.call(ctx, g.token, tokenABI, "allowance", owner, g.mpe)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Approve authorizes the escrow contract to pull amount tokens.
func (g *Gateway) Approve(ctx context.Context, amount *big.Int) (*TxResult, error) {
	return g.transact(ctx, g.token, tokenABI, "approve", g.mpe, amount)
}

// DepositWithApproval tops up the MPE balance, first raising the token
// allowance when it is short of amount.
func (g *Gateway) DepositWithApproval(ctx context.Context, amount *big.Int) (*TxResult, error) {
	allowance, err := g.Allowance(ctx, g.signer.Address())
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amount) < 0 {
		if _, err := g.Approve(ctx, amount); err != nil {
			return nil, err
		}
	}
	return g.Deposit(ctx, amount)
}
