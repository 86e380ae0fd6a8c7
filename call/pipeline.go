package call

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/channels"
	"github.com/singnet/snet-client-go/funding"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metadata"
	"github.com/singnet/snet-client-go/metrics"
	"github.com/singnet/snet-client-go/payment"
	"github.com/singnet/snet-client-go/signer"
	"github.com/singnet/snet-client-go/types"
)

// Chain is the slice of the gateway the pipeline drives.
type Chain interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	Channel(ctx context.Context, id *big.Int) (types.Channel, error)
	OpenChannel(ctx context.Context, signerAddr, recipient common.Address, groupID types.GroupID, value, expiration *big.Int) (*big.Int, *blockchain.TxResult, error)
	ChannelAddFunds(ctx context.Context, id, amount *big.Int) (*blockchain.TxResult, error)
	ChannelExtend(ctx context.Context, id, newExpiration *big.Int) (*blockchain.TxResult, error)
	ChannelExtendAndAddFunds(ctx context.Context, id, newExpiration, amount *big.Int) (*blockchain.TxResult, error)
	MPEAddress() common.Address
}

// Pipeline runs marketplace calls end to end.
type Pipeline struct {
	resolver   *metadata.Resolver
	channels   *channels.Registry
	chain      Chain
	signer     *signer.Signer
	engine     *payment.Engine
	reconciler *payment.Reconciler
	strategy   funding.Strategy
	dial       Dialer
	log        logger.Logger
	metrics    metrics.Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// WithDialer replaces the endpoint dialer, mainly for tests.
func WithDialer(d Dialer) Option {
	return func(p *Pipeline) { p.dial = d }
}

// NewPipeline wires a pipeline. The funding strategy decides top-ups and
// extensions; pass a funding.Basic to forbid automatic spending.
func NewPipeline(resolver *metadata.Resolver, reg *channels.Registry, chain Chain, s *signer.Signer, strategy funding.Strategy, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		channels: reg,
		chain:    chain,
		signer:   s,
		engine:   payment.NewEngine(s, chain.MPEAddress()),
		strategy: strategy,
		dial:     DialEndpoint,
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reconciler = payment.NewReconciler(s, chain.MPEAddress(), p.log)
	return p
}

// OpenSpec tells the pipeline how to open a channel when none is suitable.
type OpenSpec struct {
	Value      *big.Int
	Expiration string
	Force      bool
}

// FreeCallAuth carries a daemon-issued free-call token.
type FreeCallAuth struct {
	UserID           string
	Token            []byte
	TokenExpiryBlock uint64
}

// Request describes one call. Exactly one of Params (JSON services) or
// Payload (pre-serialized proto request) carries the body.
type Request struct {
	OrgID     string
	ServiceID string
	Group     string
	// Method is the fully qualified gRPC method, "package.Service/Method".
	Method  string
	Params  map[string]any
	Payload []byte
	// ChannelID pins the call to one channel; nil lets selection decide.
	ChannelID *big.Int
	// Open enables opening a channel when selection finds none.
	Open     *OpenSpec
	FreeCall *FreeCallAuth
	// SaveField extracts one field of a JSON response before writing SaveTo.
	SaveField string
	SaveTo    string
}

// Response is the outcome of a call.
type Response struct {
	Payload   []byte
	JSON      map[string]any
	Voucher   *types.Voucher
	Endpoint  string
	ChannelID *big.Int
	Warning   string
}

// Call executes one paid (or free) RPC against the service.
func (p *Pipeline) Call(ctx context.Context, req *Request) (*Response, error) {
	labels := map[string]string{"org": req.OrgID, "service": req.ServiceID}
	resp, err := p.call(ctx, req)
	if err != nil {
		p.metrics.IncCounter(metrics.CounterCallErrors, labels)
		return nil, err
	}
	p.metrics.IncCounter(metrics.CounterCalls, labels)
	return resp, nil
}

func (p *Pipeline) call(ctx context.Context, req *Request) (*Response, error) {
	md, err := p.resolver.Service(ctx, req.OrgID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	group, ok := md.Group(req.Group)
	if !ok {
		return nil, types.E(types.ErrMetadataUnknownGroup,
			"service %s/%s has no group %q", req.OrgID, req.ServiceID, req.Group)
	}

	endpoint, alternatives, err := pickEndpoint(group.Endpoints)
	if err != nil {
		return nil, err
	}
	if len(alternatives) > 0 {
		p.log.Debug("using first endpoint", map[string]any{
			"endpoint": endpoint, "alternatives": alternatives,
		})
	}

	body, err := encodeBody(md.Encoding, req)
	if err != nil {
		return nil, err
	}

	conn, err := p.dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	currentBlock, err := p.chain.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}

	resp := &Response{Endpoint: endpoint}
	if req.FreeCall != nil {
		strategy, err := payment.NewFreeCallStrategy(p.signer, p.chain.MPEAddress(),
			req.FreeCall.UserID, req.FreeCall.Token, req.FreeCall.TokenExpiryBlock, currentBlock)
		if err != nil {
			return nil, err
		}
		if err := p.invoke(strategy.GRPCMetadata(ctx), conn, req.Method, body, resp); err != nil {
			return nil, err
		}
		return resp, p.dispose(req, resp, md.Encoding)
	}

	price, err := group.Price(req.Method)
	if err != nil {
		return nil, err
	}

	channelID, err := p.selectOrOpen(ctx, group, req)
	if err != nil {
		return nil, err
	}
	resp.ChannelID = channelID

	unlock := p.engine.LockChannel(channelID)
	defer unlock()

	chainCh, err := p.chain.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if chainCh.Signer != p.signer.Address() {
		return nil, types.E(types.ErrChannelNotMine,
			"channel %s is signed for by %s, not %s",
			channelID, chainCh.Signer.Hex(), p.signer.Address().Hex())
	}

	stateClient := payment.NewStateClient(conn, p.signer, p.chain.MPEAddress())
	reply, err := stateClient.GetChannelState(ctx, channelID, currentBlock)
	if err != nil {
		return nil, err
	}
	state, err := p.reconciler.Reconcile(chainCh, reply)
	if err != nil {
		return nil, err
	}
	resp.Warning = state.Warning

	action, err := p.strategy.BeforeCall(ctx, &funding.CallContext{
		Channel:      chainCh,
		Unspent:      state.Unspent,
		Price:        price,
		CurrentBlock: currentBlock,
	})
	if err != nil {
		return nil, err
	}
	if action.Kind != funding.Proceed {
		if err := p.applyFunding(ctx, channelID, action); err != nil {
			return nil, err
		}
		// Funding changed the on-chain value; re-reconcile against the
		// fresh channel so the voucher math sees the new headroom.
		chainCh, err = p.chain.Channel(ctx, channelID)
		if err != nil {
			return nil, err
		}
		state, err = p.reconciler.Reconcile(chainCh, reply)
		if err != nil {
			return nil, err
		}
	}
	if state.Unspent.Cmp(price) < 0 {
		return nil, types.E(types.ErrChannelInsufficient,
			"channel %s has %s cogs unspent after funding, call costs %s",
			channelID, state.Unspent, price)
	}

	voucher, err := p.engine.NextVoucher(channelID, state, price)
	if err != nil {
		return nil, err
	}
	resp.Voucher = voucher

	stamped := (&payment.EscrowStrategy{Voucher: voucher}).GRPCMetadata(ctx)
	if err := p.invoke(stamped, conn, req.Method, body, resp); err != nil {
		return nil, err
	}
	return resp, p.dispose(req, resp, md.Encoding)
}

func (p *Pipeline) selectOrOpen(ctx context.Context, group *types.ServiceGroup, req *Request) (*big.Int, error) {
	sel, err := p.channels.SelectFor(ctx, group, p.signer.Address(), req.ChannelID)
	if err != nil {
		return nil, err
	}
	switch sel.Status {
	case channels.Found:
		return sel.Channel.ID.Unwrap(), nil
	case channels.Ambiguous:
		return nil, channels.AmbiguousError(sel)
	}
	if req.ChannelID != nil {
		return nil, types.E(types.ErrChannelNotFound,
			"channel %s does not match this service group and signer", req.ChannelID)
	}
	if req.Open == nil {
		return nil, types.E(types.ErrChannelNotFound,
			"no open channel for group %q; open one or enable auto-open", group.GroupName)
	}

	currentBlock, err := p.chain.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	expiration, err := funding.ResolveExpiration(req.Open.Expiration, currentBlock, req.Open.Force)
	if err != nil {
		return nil, err
	}
	recipient := common.HexToAddress(group.Recipient)
	id, _, err := p.chain.OpenChannel(ctx, p.signer.Address(), recipient, group.GroupID,
		req.Open.Value, expiration)
	if err != nil {
		return nil, err
	}
	p.log.Info("opened channel", map[string]any{
		"channel": id.String(), "value": req.Open.Value.String(),
		"expiration": expiration.String(),
	})
	return id, nil
}

func (p *Pipeline) applyFunding(ctx context.Context, channelID *big.Int, action funding.Action) error {
	var err error
	switch action.Kind {
	case funding.TopUp:
		_, err = p.chain.ChannelAddFunds(ctx, channelID, action.TopUpAmount)
	case funding.Extend:
		_, err = p.chain.ChannelExtend(ctx, channelID, action.NewExpiration)
	case funding.TopUpAndExtend:
		_, err = p.chain.ChannelExtendAndAddFunds(ctx, channelID, action.NewExpiration, action.TopUpAmount)
	default:
		err = types.E(types.ErrStrategyRefused, "strategy refused the call: %s", action.Reason)
	}
	return err
}

func (p *Pipeline) invoke(ctx context.Context, conn *grpc.ClientConn, method string, body []byte, resp *Response) error {
	full := "/" + strings.TrimPrefix(method, "/")
	var out []byte
	err := conn.Invoke(ctx, full, body, &out, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		return types.E(types.ErrServiceUnreachable, "invoke %s: %v", full, err)
	}
	resp.Payload = out
	return nil
}

func encodeBody(encoding string, req *Request) ([]byte, error) {
	if req.Payload != nil {
		return req.Payload, nil
	}
	if encoding != "json" {
		return nil, types.E(types.ErrBadEncoding,
			"service uses %q encoding; provide a pre-serialized payload", encoding)
	}
	params, err := TransformParams(req.Params)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, types.E(types.ErrBadEncoding, "encode request: %v", err)
	}
	return body, nil
}

// dispose decodes a JSON response and, when asked, writes the response (or
// one extracted field) to a file.
func (p *Pipeline) dispose(req *Request, resp *Response, encoding string) error {
	if encoding == "json" && len(resp.Payload) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(resp.Payload, &decoded); err == nil {
			resp.JSON = decoded
		}
	}
	if req.SaveTo == "" {
		return nil
	}
	out := resp.Payload
	if req.SaveField != "" {
		if resp.JSON == nil {
			return types.E(types.ErrBadEncoding,
				"cannot extract field %q from a non-JSON response", req.SaveField)
		}
		value, ok := resp.JSON[req.SaveField]
		if !ok {
			return types.E(types.ErrBadEncoding, "response has no field %q", req.SaveField)
		}
		switch v := value.(type) {
		case string:
			// Bytes fields arrive base64-encoded in JSON.
			if raw, err := base64.StdEncoding.DecodeString(v); err == nil {
				out = raw
			} else {
				out = []byte(v)
			}
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return types.E(types.ErrBadEncoding, "field %q: %v", req.SaveField, err)
			}
			out = raw
		}
	}
	return os.WriteFile(req.SaveTo, out, 0o644)
}
