package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	snet "github.com/singnet/snet-client-go"
	"github.com/singnet/snet-client-go/types"
)

func cmdAccount(ctx context.Context, client *snet.Client, args []string) error {
	if len(args) == 0 {
		fmt.Println("usage: snet account <balance|deposit|withdraw|transfer> [args]")
		return errUsage
	}
	switch args[0] {
	case "balance":
		return accountBalance(ctx, client)
	case "deposit":
		amount, err := amountArg(args[1:])
		if err != nil {
			return err
		}
		res, err := client.Chain().DepositWithApproval(ctx, amount)
		if err != nil {
			return err
		}
		fmt.Printf("deposited %s in tx %s\n", types.CogsToToken(amount), res.TxHash.Hex())
		return nil
	case "withdraw":
		amount, err := amountArg(args[1:])
		if err != nil {
			return err
		}
		res, err := client.Chain().Withdraw(ctx, amount)
		if err != nil {
			return err
		}
		fmt.Printf("withdrew %s in tx %s\n", types.CogsToToken(amount), res.TxHash.Hex())
		return nil
	case "transfer":
		if len(args) != 3 {
			fmt.Println("usage: snet account transfer <address> <amount>")
			return errUsage
		}
		if !common.IsHexAddress(args[1]) {
			return types.E(types.ErrChainInvalidAddr, "%q is not a hex address", args[1])
		}
		amount, err := types.TokenToCogs(args[2])
		if err != nil {
			return err
		}
		res, err := client.Chain().TransferEscrow(ctx, common.HexToAddress(args[1]), amount)
		if err != nil {
			return err
		}
		fmt.Printf("transferred %s to %s in tx %s\n",
			types.CogsToToken(amount), args[1], res.TxHash.Hex())
		return nil
	default:
		fmt.Printf("unknown account subcommand %q\n", args[0])
		return errUsage
	}
}

func accountBalance(ctx context.Context, client *snet.Client) error {
	addr := client.Address()
	token, err := client.Chain().TokenBalance(ctx, addr)
	if err != nil {
		return err
	}
	escrow, err := client.Chain().EscrowBalance(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Printf("account: %s\n", addr.Hex())
	fmt.Printf("  token balance:  %s\n", types.CogsToToken(token))
	fmt.Printf("  escrow balance: %s\n", types.CogsToToken(escrow))
	return nil
}

// amountArg parses a single token amount argument (decimal tokens, converted
// to cogs).
func amountArg(args []string) (*big.Int, error) {
	if len(args) != 1 {
		fmt.Println("expected exactly one amount argument")
		return nil, errUsage
	}
	return types.TokenToCogs(args[0])
}
