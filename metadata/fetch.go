package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/avast/retry-go"

	"github.com/singnet/snet-client-go/types"
)

const (
	fetchAttempts   = 3
	fetchRetryDelay = 500 * time.Millisecond
	maxBlobSize     = 4 << 20
)

// Fetcher retrieves a content-addressed blob. Integrity verification is the
// resolver's job, not the fetcher's.
type Fetcher interface {
	Fetch(ctx context.Context, storage, hash string) ([]byte, error)
}

// HTTPFetcher reads blobs through an IPFS-compatible HTTP gateway. Filecoin
// CIDs resolve through the same /ipfs/ path.
type HTTPFetcher struct {
	base   string
	client *http.Client
}

// NewHTTPFetcher builds a fetcher for a gateway base URL such as
// "https://ipfs.singularitynet.io".
func NewHTTPFetcher(base string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, storage, hash string) ([]byte, error) {
	url := fmt.Sprintf("%s/ipfs/%s", f.base, hash)
	var body []byte
	err := retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return retry.Unrecoverable(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("gateway returned %s", resp.Status)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Unrecoverable(err)
			}
			return err
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
		return err
	}, retry.Attempts(fetchAttempts), retry.Delay(fetchRetryDelay), retry.LastErrorOnly(true))
	if err != nil {
		return nil, types.E(types.ErrContentFetch, "fetch %s://%s: %v", storage, hash, err)
	}
	return body, nil
}
