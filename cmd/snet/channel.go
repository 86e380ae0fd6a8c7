package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	snet "github.com/singnet/snet-client-go"
	"github.com/singnet/snet-client-go/call"
	"github.com/singnet/snet-client-go/claim"
	"github.com/singnet/snet-client-go/types"
)

func cmdChannel(ctx context.Context, client *snet.Client, args []string) error {
	if len(args) == 0 {
		fmt.Println("usage: snet channel <open|extend|add-funds|print|state|claim-timeout> [flags]")
		return errUsage
	}
	sub, subArgs := args[0], args[1:]
	switch sub {
	case "open":
		return channelOpen(ctx, client, subArgs)
	case "extend":
		return channelExtend(ctx, client, subArgs)
	case "add-funds":
		return channelAddFunds(ctx, client, subArgs)
	case "print":
		return channelPrint(ctx, client)
	case "state":
		return channelState(ctx, client, subArgs)
	case "claim-timeout":
		return channelClaimTimeout(ctx, client, subArgs)
	default:
		fmt.Printf("unknown channel subcommand %q\n", sub)
		return errUsage
	}
}

func channelOpen(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("channel open", flag.ContinueOnError)
	org := fs.String("org", "", "organization id")
	service := fs.String("service", "", "service id")
	group := fs.String("group", "", "payment group (optional with one group)")
	amount := fs.String("amount", "", "channel value in tokens")
	expiration := fs.String("expiration", "+1days", "absolute block, +Nblocks, or +Ndays")
	force := fs.Bool("force", false, "allow expirations beyond the safety horizon")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *org == "" || *service == "" || *amount == "" {
		fs.Usage()
		return errUsage
	}
	value, err := types.TokenToCogs(*amount)
	if err != nil {
		return err
	}
	id, err := client.OpenChannel(ctx, *org, *service, *group, value, *expiration, *force)
	if err != nil {
		return err
	}
	fmt.Printf("opened channel %s\n", id)
	return nil
}

func channelExtend(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("channel extend", flag.ContinueOnError)
	channel := fs.String("channel", "", "channel id")
	expiration := fs.String("expiration", "", "absolute block, +Nblocks, or +Ndays")
	force := fs.Bool("force", false, "allow expirations beyond the safety horizon")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := channelIDArg(*channel)
	if err != nil {
		return err
	}
	return client.ExtendChannel(ctx, id, *expiration, *force)
}

func channelAddFunds(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("channel add-funds", flag.ContinueOnError)
	channel := fs.String("channel", "", "channel id")
	amount := fs.String("amount", "", "amount in tokens")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := channelIDArg(*channel)
	if err != nil {
		return err
	}
	cogs, err := types.TokenToCogs(*amount)
	if err != nil {
		return err
	}
	return client.AddFunds(ctx, id, cogs)
}

func channelPrint(ctx context.Context, client *snet.Client) error {
	list, err := client.Channels().ListAll(ctx, nil)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no channels in cache")
		return nil
	}
	for _, ch := range list {
		fmt.Printf("channel %s  recipient %s  group %s  value %s  expires %s\n",
			ch.ID.Unwrap(), ch.Recipient.Hex(), ch.GroupID,
			types.CogsToToken(ch.Value.Unwrap()), ch.Expiration.Unwrap())
	}
	return nil
}

func channelState(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("channel state", flag.ContinueOnError)
	org := fs.String("org", "", "organization id")
	service := fs.String("service", "", "service id")
	group := fs.String("group", "", "payment group")
	channel := fs.String("channel", "", "channel id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := channelIDArg(*channel)
	if err != nil {
		return err
	}
	state, err := client.ChannelState(ctx, *org, *service, *group, id)
	if err != nil {
		return err
	}
	fmt.Printf("channel %s\n", id)
	fmt.Printf("  nonce:         %s\n", state.CurrentNonce)
	fmt.Printf("  signed amount: %s\n", types.CogsToToken(state.CurrentSignedAmount))
	fmt.Printf("  unspent:       %s\n", types.CogsToToken(state.Unspent))
	if state.Warning != "" {
		fmt.Printf("  warning: %s\n", state.Warning)
	}
	return nil
}

func channelClaimTimeout(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("channel claim-timeout", flag.ContinueOnError)
	channel := fs.String("channel", "", "channel id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := channelIDArg(*channel)
	if err != nil {
		return err
	}
	res, err := client.ClaimTimeout(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("reclaimed channel %s in tx %s\n", id, res.TxHash.Hex())
	return nil
}

func cmdCall(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	org := fs.String("org", "", "organization id")
	service := fs.String("service", "", "service id")
	group := fs.String("group", "", "payment group (optional with one group)")
	method := fs.String("method", "", "fully qualified method, package.Service/Method")
	params := fs.String("params", "", "JSON request parameters, or @file")
	channel := fs.String("channel", "", "pin the call to one channel id")
	openValue := fs.String("open-amount", "", "open a channel with this value when none exists")
	openExpiration := fs.String("open-expiration", "+1days", "expiration for an auto-opened channel")
	saveTo := fs.String("save-to", "", "write the response to a file")
	saveField := fs.String("save-field", "", "extract this JSON field before writing")
	freeUser := fs.String("free-call-user", "", "free-call user id")
	freeToken := fs.String("free-call-token", "", "free-call token file")
	freeExpiry := fs.Uint64("free-call-token-expiry", 0, "free-call token expiry block")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *org == "" || *service == "" || *method == "" {
		fs.Usage()
		return errUsage
	}

	req := &call.Request{
		OrgID:     *org,
		ServiceID: *service,
		Group:     *group,
		Method:    *method,
		SaveTo:    *saveTo,
		SaveField: *saveField,
	}
	if *params != "" {
		raw := []byte(*params)
		if strings.HasPrefix(*params, "@") {
			var err error
			raw, err = os.ReadFile((*params)[1:])
			if err != nil {
				return err
			}
		}
		if err := json.Unmarshal(raw, &req.Params); err != nil {
			return types.E(types.ErrBadEncoding, "parse params: %v", err)
		}
	}
	if *channel != "" {
		id, err := channelIDArg(*channel)
		if err != nil {
			return err
		}
		req.ChannelID = id
	}
	if *openValue != "" {
		value, err := types.TokenToCogs(*openValue)
		if err != nil {
			return err
		}
		req.Open = &call.OpenSpec{Value: value, Expiration: *openExpiration}
	}
	if *freeUser != "" {
		token, err := os.ReadFile(*freeToken)
		if err != nil {
			return err
		}
		req.FreeCall = &call.FreeCallAuth{
			UserID:           *freeUser,
			Token:            token,
			TokenExpiryBlock: *freeExpiry,
		}
	}

	resp, err := client.Call(ctx, req)
	if err != nil {
		return err
	}
	if resp.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", resp.Warning)
	}
	switch {
	case *saveTo != "":
		fmt.Printf("response written to %s\n", *saveTo)
	case resp.JSON != nil:
		pretty, _ := json.MarshalIndent(resp.JSON, "", "  ")
		fmt.Println(string(pretty))
	default:
		os.Stdout.Write(resp.Payload)
	}
	return nil
}

func cmdClaim(ctx context.Context, client *snet.Client, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	org := fs.String("org", "", "organization id")
	service := fs.String("service", "", "service id")
	group := fs.String("group", "", "payment group")
	channelsArg := fs.String("channels", "", "comma-separated channel ids")
	all := fs.Bool("all", false, "claim every channel with accumulated funds")
	expiring := fs.Uint64("expiring-within", 0, "claim channels expiring within N blocks")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *org == "" || *service == "" {
		fs.Usage()
		return errUsage
	}

	sel := claim.Selection{All: *all, ExpiringWithinBlocks: *expiring}
	if *channelsArg != "" {
		for _, part := range strings.Split(*channelsArg, ",") {
			id, err := channelIDArg(strings.TrimSpace(part))
			if err != nil {
				return err
			}
			sel.Explicit = append(sel.Explicit, id)
		}
	}

	report, err := client.RunClaimCycle(ctx, *org, *service, *group, sel)
	if err != nil {
		return err
	}
	for _, o := range report.Recovered {
		fmt.Printf("recovered channel %s: %s in tx %s\n",
			o.ChannelID, types.CogsToToken(o.Amount), o.TxHash)
	}
	for _, o := range report.Claimed {
		fmt.Printf("claimed channel %s: %s in tx %s\n",
			o.ChannelID, types.CogsToToken(o.Amount), o.TxHash)
	}
	for _, o := range report.Skipped {
		fmt.Printf("skipped channel %s: %s\n", o.ChannelID, o.Reason)
	}
	for _, o := range report.Failed {
		fmt.Printf("failed channel %s: %s\n", o.ChannelID, o.Reason)
	}
	return nil
}

func channelIDArg(s string) (*big.Int, error) {
	if s == "" {
		fmt.Println("a channel id is required")
		return nil, errUsage
	}
	id, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, types.E(types.ErrChannelNotFound, "%q is not a channel id", s)
	}
	return id, nil
}
