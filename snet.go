// Package snet is the top-level client for the SingularityNET marketplace:
// it resolves services from the on-chain registry, manages MultiPartyEscrow
// payment channels, and executes paid gRPC calls with signed vouchers.
package snet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/call"
	"github.com/singnet/snet-client-go/channels"
	"github.com/singnet/snet-client-go/claim"
	"github.com/singnet/snet-client-go/config"
	"github.com/singnet/snet-client-go/funding"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metadata"
	"github.com/singnet/snet-client-go/metrics"
	"github.com/singnet/snet-client-go/payment"
	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

// Client bundles the chain gateway, metadata resolver, channel cache, and
// call pipeline behind one construction point.
type Client struct {
	cfg      *config.Config
	signer   *signer.Signer
	chain    *blockchain.Gateway
	resolver *metadata.Resolver
	channels *channels.Registry
	pipeline *call.Pipeline

	strategy funding.Strategy
	confirm  blockchain.ConfirmFunc
	log      logger.Logger
	metrics  metrics.Recorder
	timeout  time.Duration
}

// New connects a client from configuration. Close releases the RPC
// connection.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:      cfg,
		strategy: &funding.Basic{ThresholdBlocks: funding.BlocksPerDay},
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	c.signer, err = signer.NewFromHex(key)
	if err != nil {
		return nil, err
	}

	gwOpts := []blockchain.Option{
		blockchain.WithLogger(c.log),
		blockchain.WithMetrics(c.metrics),
		blockchain.WithConfirmations(cfg.WaitConfirmations),
	}
	if c.confirm != nil {
		gwOpts = append(gwOpts, blockchain.WithConfirm(c.confirm))
	}
	c.chain, err = blockchain.Dial(ctx, cfg.RPCEndpoint,
		cfg.MPEAddress, cfg.RegistryAddress, cfg.TokenAddress, c.signer, gwOpts...)
	if err != nil {
		return nil, err
	}

	fetcher := metadata.NewHTTPFetcher(cfg.IPFSGateway, c.timeout)
	c.resolver = metadata.NewResolver(c.chain, fetcher, c.chain.MPEAddress(),
		metadata.WithDiskCache(cfg.MetadataMirrorDir()),
		metadata.WithLogger(c.log),
	)

	store := channels.NewStore(cfg.CacheDir(), c.chain.MPEAddress())
	c.channels = channels.NewRegistry(store, c.chain, c.signer.Address(), c.log, c.metrics)

	c.pipeline = call.NewPipeline(c.resolver, c.channels, c.chain, c.signer, c.strategy,
		call.WithLogger(c.log),
		call.WithMetrics(c.metrics),
	)
	return c, nil
}

// Close releases the underlying chain connection.
func (c *Client) Close() {
	c.chain.Close()
}

// Address is the client's signing address.
func (c *Client) Address() common.Address {
	return c.signer.Address()
}

// Chain exposes the raw gateway for account and registry operations.
func (c *Client) Chain() *blockchain.Gateway {
	return c.chain
}

// Resolver exposes the metadata resolver.
func (c *Client) Resolver() *metadata.Resolver {
	return c.resolver
}

// Channels exposes the channel cache.
func (c *Client) Channels() *channels.Registry {
	return c.channels
}

// Call runs one paid RPC through the full pipeline.
func (c *Client) Call(ctx context.Context, req *call.Request) (*call.Response, error) {
	return c.pipeline.Call(ctx, req)
}

// OpenChannel opens a payment channel for a service group. Expiration is an
// expression: an absolute block, "+Nblocks", or "+Ndays".
func (c *Client) OpenChannel(ctx context.Context, orgID, serviceID, group string, value *big.Int, expiration string, force bool) (*big.Int, error) {
	md, err := c.resolver.Service(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}
	g, ok := md.Group(group)
	if !ok {
		return nil, types.E(types.ErrMetadataUnknownGroup,
			"service %s/%s has no group %q", orgID, serviceID, group)
	}
	currentBlock, err := c.chain.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	target, err := funding.ResolveExpiration(expiration, currentBlock, force)
	if err != nil {
		return nil, err
	}
	id, _, err := c.chain.OpenChannel(ctx, c.signer.Address(),
		common.HexToAddress(g.Recipient), g.GroupID, value, target)
	return id, err
}

// ExtendChannel moves a channel's expiration forward.
func (c *Client) ExtendChannel(ctx context.Context, channelID *big.Int, expiration string, force bool) error {
	currentBlock, err := c.chain.CurrentBlock(ctx)
	if err != nil {
		return err
	}
	target, err := funding.ResolveExpiration(expiration, currentBlock, force)
	if err != nil {
		return err
	}
	_, err = c.chain.ChannelExtend(ctx, channelID, target)
	return err
}

// AddFunds adds escrow funds to a channel.
func (c *Client) AddFunds(ctx context.Context, channelID, amount *big.Int) error {
	_, err := c.chain.ChannelAddFunds(ctx, channelID, amount)
	return err
}

// ChannelState returns the reconciled state of a channel: fresh chain data
// cross-checked against the daemon serving the given service group.
func (c *Client) ChannelState(ctx context.Context, orgID, serviceID, group string, channelID *big.Int) (*payment.State, error) {
	md, err := c.resolver.Service(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}
	g, ok := md.Group(group)
	if !ok {
		return nil, types.E(types.ErrMetadataUnknownGroup,
			"service %s/%s has no group %q", orgID, serviceID, group)
	}
	endpoint, _, err := pickFirst(g.Endpoints)
	if err != nil {
		return nil, err
	}
	conn, err := call.DialEndpoint(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	chainCh, err := c.chain.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	currentBlock, err := c.chain.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := payment.NewStateClient(conn, c.signer, c.chain.MPEAddress()).
		GetChannelState(ctx, channelID, currentBlock)
	if err != nil {
		return nil, err
	}
	return payment.NewReconciler(c.signer, c.chain.MPEAddress(), c.log).Reconcile(chainCh, reply)
}

// ClaimTimeout reclaims the remaining funds of an expired channel.
func (c *Client) ClaimTimeout(ctx context.Context, channelID *big.Int) (*blockchain.TxResult, error) {
	return claim.ClaimTimeout(ctx, c.chain, channelID)
}

// RunClaimCycle settles provider-side claims against one service group's
// daemon.
func (c *Client) RunClaimCycle(ctx context.Context, orgID, serviceID, group string, sel claim.Selection) (*claim.Report, error) {
	md, err := c.resolver.Service(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}
	g, ok := md.Group(group)
	if !ok {
		return nil, types.E(types.ErrMetadataUnknownGroup,
			"service %s/%s has no group %q", orgID, serviceID, group)
	}
	endpoint, _, err := pickFirst(g.Endpoints)
	if err != nil {
		return nil, err
	}
	conn, err := call.DialEndpoint(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	control := claim.NewControlClient(conn, c.signer, c.chain.MPEAddress())
	runner := claim.NewRunner(c.chain, control, c.log, c.metrics)
	return runner.Run(ctx, sel)
}

func pickFirst(endpoints []string) (string, []string, error) {
	if len(endpoints) == 0 {
		return "", nil, types.E(types.ErrMetadataSchema, "group has no endpoints")
	}
	return endpoints[0], endpoints[1:], nil
}
