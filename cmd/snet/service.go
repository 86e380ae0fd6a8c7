package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	snet "github.com/singnet/snet-client-go"
	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/metadata"
	"github.com/singnet/snet-client-go/types"
)

func cmdOrganization(ctx context.Context, client *snet.Client, args []string) error {
	if len(args) == 0 {
		fmt.Println("usage: snet organization <list|info|create|change-metadata|change-owner|add-members|remove-members|delete> [args]")
		return errUsage
	}
	sub, subArgs := args[0], args[1:]
	switch sub {
	case "list":
		ids, err := client.Chain().ListOrganizations(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	case "info":
		if len(subArgs) != 1 {
			fmt.Println("usage: snet organization info <org-id>")
			return errUsage
		}
		md, err := client.Resolver().Organization(ctx, subArgs[0])
		if err != nil {
			return err
		}
		pretty, _ := json.MarshalIndent(md, "", "  ")
		fmt.Println(string(pretty))
		return nil
	case "create":
		fs := flag.NewFlagSet("organization create", flag.ContinueOnError)
		org := fs.String("org", "", "organization id")
		hash := fs.String("metadata-hash", "", "IPFS hash of the metadata document")
		storage := fs.String("storage", metadata.StorageIPFS, "metadata storage scheme")
		membersArg := fs.String("members", "", "comma-separated member addresses")
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		if *org == "" || *hash == "" {
			fs.Usage()
			return errUsage
		}
		members, err := addressListArg(*membersArg)
		if err != nil {
			return err
		}
		res, err := client.Chain().CreateOrganization(ctx, *org, metadata.EncodeURI(*storage, *hash), members)
		if err != nil {
			return err
		}
		fmt.Printf("created organization %s in tx %s\n", *org, res.TxHash.Hex())
		return nil
	case "change-metadata":
		fs := flag.NewFlagSet("organization change-metadata", flag.ContinueOnError)
		org := fs.String("org", "", "organization id")
		hash := fs.String("metadata-hash", "", "IPFS hash of the metadata document")
		storage := fs.String("storage", metadata.StorageIPFS, "metadata storage scheme")
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		if *org == "" || *hash == "" {
			fs.Usage()
			return errUsage
		}
		res, err := client.Chain().ChangeOrganizationMetadataURI(ctx, *org, metadata.EncodeURI(*storage, *hash))
		if err != nil {
			return err
		}
		fmt.Printf("changed metadata of %s in tx %s\n", *org, res.TxHash.Hex())
		return nil
	case "change-owner":
		if len(subArgs) != 2 {
			fmt.Println("usage: snet organization change-owner <org-id> <address>")
			return errUsage
		}
		owner, err := addressArg(subArgs[1])
		if err != nil {
			return err
		}
		res, err := client.Chain().ChangeOrganizationOwner(ctx, subArgs[0], owner)
		if err != nil {
			return err
		}
		fmt.Printf("changed owner of %s in tx %s\n", subArgs[0], res.TxHash.Hex())
		return nil
	case "add-members", "remove-members":
		if len(subArgs) != 2 {
			fmt.Printf("usage: snet organization %s <org-id> <address,address,...>\n", sub)
			return errUsage
		}
		members, err := addressListArg(subArgs[1])
		if err != nil {
			return err
		}
		if len(members) == 0 {
			fmt.Println("at least one member address is required")
			return errUsage
		}
		var res *blockchain.TxResult
		verb := "added"
		if sub == "add-members" {
			res, err = client.Chain().AddOrganizationMembers(ctx, subArgs[0], members)
		} else {
			verb = "removed"
			res, err = client.Chain().RemoveOrganizationMembers(ctx, subArgs[0], members)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %d members of %s in tx %s\n", verb, len(members), subArgs[0], res.TxHash.Hex())
		return nil
	case "delete":
		if len(subArgs) != 1 {
			fmt.Println("usage: snet organization delete <org-id>")
			return errUsage
		}
		res, err := client.Chain().DeleteOrganization(ctx, subArgs[0])
		if err != nil {
			return err
		}
		fmt.Printf("deleted organization %s in tx %s\n", subArgs[0], res.TxHash.Hex())
		return nil
	default:
		fmt.Printf("unknown organization subcommand %q\n", sub)
		return errUsage
	}
}

// addressArg parses one hex address argument.
func addressArg(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, types.E(types.ErrChainInvalidAddr, "%q is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

// addressListArg parses a comma-separated address list; empty input is an
// empty list.
func addressListArg(s string) ([]common.Address, error) {
	var out []common.Address
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := addressArg(part)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func cmdService(ctx context.Context, client *snet.Client, args []string) error {
	if len(args) == 0 {
		fmt.Println("usage: snet service <info|register|update|delete> [flags]")
		return errUsage
	}
	sub, subArgs := args[0], args[1:]
	switch sub {
	case "info":
		if len(subArgs) != 2 {
			fmt.Println("usage: snet service info <org-id> <service-id>")
			return errUsage
		}
		md, err := client.Resolver().Service(ctx, subArgs[0], subArgs[1])
		if err != nil {
			return err
		}
		pretty, _ := json.MarshalIndent(md, "", "  ")
		fmt.Println(string(pretty))
		return nil
	case "register", "update":
		fs := flag.NewFlagSet("service "+sub, flag.ContinueOnError)
		org := fs.String("org", "", "organization id")
		service := fs.String("service", "", "service id")
		hash := fs.String("metadata-hash", "", "IPFS hash of the metadata document")
		storage := fs.String("storage", metadata.StorageIPFS, "metadata storage scheme")
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		if *org == "" || *service == "" || *hash == "" {
			fs.Usage()
			return errUsage
		}
		uri := metadata.EncodeURI(*storage, *hash)
		var res *blockchain.TxResult
		var err error
		verb := "registered"
		if sub == "register" {
			res, err = client.Chain().CreateServiceRegistration(ctx, *org, *service, uri)
		} else {
			verb = "updated"
			res, err = client.Chain().UpdateServiceRegistration(ctx, *org, *service, uri)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %s/%s in tx %s\n", verb, *org, *service, res.TxHash.Hex())
		return nil
	case "delete":
		fs := flag.NewFlagSet("service delete", flag.ContinueOnError)
		org := fs.String("org", "", "organization id")
		service := fs.String("service", "", "service id")
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		if *org == "" || *service == "" {
			fs.Usage()
			return errUsage
		}
		res, err := client.Chain().DeleteServiceRegistration(ctx, *org, *service)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s/%s in tx %s\n", *org, *service, res.TxHash.Hex())
		return nil
	default:
		fmt.Printf("unknown service subcommand %q\n", sub)
		return errUsage
	}
}
