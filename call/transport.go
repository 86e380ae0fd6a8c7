package call

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/singnet/snet-client-go/types"
)

// rawCodec passes request and response payloads through untouched. The
// pipeline carries pre-serialized bodies, so the transport must not try to
// re-marshal them. The name must stay "proto" so the daemon sees the
// content-type it expects.
type rawCodec struct{}

func (rawCodec) Name() string { return "proto" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	raw, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("raw codec: expected []byte, got %T", v)
	}
	return raw, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	out, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec: expected *[]byte, got %T", v)
	}
	*out = data
	return nil
}

// Dialer opens a gRPC connection to a service endpoint. A custom dialer can
// be injected for tests.
type Dialer func(ctx context.Context, endpoint string) (*grpc.ClientConn, error)

// DialEndpoint connects to an endpoint URI from service metadata. The https
// scheme gets TLS with the system roots; http dials in the clear. A bare
// host:port defaults to the clear.
func DialEndpoint(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	target, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	creds := insecure.NewCredentials()
	if secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, types.E(types.ErrServiceUnreachable, "dial %s: %v", endpoint, err)
	}
	return conn, nil
}

func parseEndpoint(endpoint string) (target string, secure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, types.E(types.ErrUnsupportedScheme, "endpoint %q: %v", endpoint, err)
	}
	host := u.Host
	switch u.Scheme {
	case "https":
		if u.Port() == "" {
			host += ":443"
		}
		return host, true, nil
	case "http":
		if u.Port() == "" {
			host += ":80"
		}
		return host, false, nil
	default:
		return "", false, types.E(types.ErrUnsupportedScheme,
			"endpoint %q: scheme %q not supported", endpoint, u.Scheme)
	}
}

// pickEndpoint returns the first endpoint of a group. Alternatives are
// reported to the caller for logging.
func pickEndpoint(endpoints []string) (string, []string, error) {
	if len(endpoints) == 0 {
		return "", nil, types.E(types.ErrMetadataSchema, "group has no endpoints")
	}
	return endpoints[0], endpoints[1:], nil
}
