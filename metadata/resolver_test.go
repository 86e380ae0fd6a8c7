package metadata

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/types"
)

var testMPE = common.HexToAddress("0x5e592F9b1d303183d963635f895f0f0C48284f4e")

var testGroupID = base64.StdEncoding.EncodeToString(make([]byte, 32))

type fakeRegistry struct {
	orgURI     []byte
	serviceURI []byte
}

func (f *fakeRegistry) GetOrganizationByID(_ context.Context, orgID string) (*blockchain.OrganizationRecord, error) {
	return &blockchain.OrganizationRecord{ID: orgID, MetadataURI: f.orgURI}, nil
}

func (f *fakeRegistry) GetServiceRegistrationByID(_ context.Context, orgID, serviceID string) (*blockchain.ServiceRecord, error) {
	return &blockchain.ServiceRecord{OrgID: orgID, ID: serviceID, MetadataURI: f.serviceURI}, nil
}

// fakeFetcher serves stored blobs by hash.
type fakeFetcher struct {
	blobs map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, _, hash string) ([]byte, error) {
	blob, ok := f.blobs[hash]
	if !ok {
		return nil, types.E(types.ErrContentFetch, "no blob for %s", hash)
	}
	return blob, nil
}

func orgDoc() []byte {
	return []byte(fmt.Sprintf(`{
	  "org_name": "Example",
	  "org_id": "example-org",
	  "groups": [{
	    "group_name": "default_group",
	    "group_id": %q,
	    "payment": {
	      "payment_address": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	      "payment_expiration_threshold": 100
	    }
	  }]
	}`, testGroupID))
}

func serviceDoc(mpe string) []byte {
	return []byte(fmt.Sprintf(`{
	  "version": 1,
	  "display_name": "Example Service",
	  "encoding": "proto",
	  "service_type": "grpc",
	  "model_ipfs_hash": "QmModel",
	  "mpe_address": %q,
	  "groups": [{
	    "group_name": "default_group",
	    "pricing": [{"price_model": "fixed_price", "price_in_cogs": "1"}],
	    "endpoints": ["https://svc.example.com:8443"]
	  }]
	}`, mpe))
}

func newTestResolver(t *testing.T, orgBlob, serviceBlob []byte, opts ...Option) *Resolver {
	t.Helper()
	orgHash := b58Hash(t, orgBlob)
	serviceHash := b58Hash(t, serviceBlob)
	reg := &fakeRegistry{
		orgURI:     EncodeURI(StorageIPFS, orgHash),
		serviceURI: EncodeURI(StorageIPFS, serviceHash),
	}
	fetcher := &fakeFetcher{blobs: map[string][]byte{
		orgHash:     orgBlob,
		serviceHash: serviceBlob,
	}}
	return NewResolver(reg, fetcher, testMPE, opts...)
}

func TestServiceResolvesGroupRecipient(t *testing.T) {
	r := newTestResolver(t, orgDoc(), serviceDoc(testMPE.Hex()))

	md, err := r.Service(context.Background(), "example-org", "example-service")
	require.NoError(t, err)
	require.Len(t, md.Groups, 1)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", md.Groups[0].Recipient)
	assert.Equal(t, testGroupID, md.Groups[0].GroupID.String())
}

func TestServiceRejectsEscrowMismatch(t *testing.T) {
	other := "0x0000000000000000000000000000000000000001"
	r := newTestResolver(t, orgDoc(), serviceDoc(other))

	_, err := r.Service(context.Background(), "example-org", "example-service")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMetadataEscrowMismatch))
}

func TestServiceRejectsTamperedContent(t *testing.T) {
	orgBlob := orgDoc()
	serviceBlob := serviceDoc(testMPE.Hex())
	r := newTestResolver(t, orgBlob, serviceBlob)

	// Replace the stored service blob so the hash no longer matches.
	tampered := append([]byte(nil), serviceBlob...)
	tampered[0] = ' '
	r.fetcher.(*fakeFetcher).blobs[b58Hash(t, serviceBlob)] = tampered

	_, err := r.Service(context.Background(), "example-org", "example-service")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrContentHashMismatch))
}

func TestServiceRejectsUnknownOrgGroup(t *testing.T) {
	serviceBlob := []byte(fmt.Sprintf(`{
	  "version": 1,
	  "display_name": "Example Service",
	  "encoding": "proto",
	  "service_type": "grpc",
	  "model_ipfs_hash": "QmModel",
	  "mpe_address": %q,
	  "groups": [{
	    "group_name": "unlisted_group",
	    "pricing": [{"price_model": "fixed_price", "price_in_cogs": "1"}],
	    "endpoints": ["https://svc.example.com:8443"]
	  }]
	}`, testMPE.Hex()))
	r := newTestResolver(t, orgDoc(), serviceBlob)

	_, err := r.Service(context.Background(), "example-org", "example-service")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMetadataUnknownGroup))
}

func TestServiceRejectsInvalidSchema(t *testing.T) {
	// Missing encoding and endpoints.
	serviceBlob := []byte(fmt.Sprintf(`{
	  "version": 1,
	  "mpe_address": %q,
	  "groups": [{"group_name": "default_group"}]
	}`, testMPE.Hex()))
	r := newTestResolver(t, orgDoc(), serviceBlob)

	_, err := r.Service(context.Background(), "example-org", "example-service")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMetadataSchema))
}

func TestServiceMirrorsToDisk(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver(t, orgDoc(), serviceDoc(testMPE.Hex()), WithDiskCache(dir))

	_, err := r.Service(context.Background(), "example-org", "example-service")
	require.NoError(t, err)

	mirrored := filepath.Join(dir, "example-org", "example-service.json")
	_, err = os.Stat(mirrored)
	assert.NoError(t, err)
}

func TestServiceUsesCacheOnSecondLookup(t *testing.T) {
	serviceBlob := serviceDoc(testMPE.Hex())
	r := newTestResolver(t, orgDoc(), serviceBlob)

	_, err := r.Service(context.Background(), "example-org", "example-service")
	require.NoError(t, err)

	// Drop the backing blobs; the cached document must still resolve.
	r.fetcher.(*fakeFetcher).blobs = map[string][]byte{}
	md, err := r.Service(context.Background(), "example-org", "example-service")
	require.NoError(t, err)
	assert.Equal(t, "Example Service", md.DisplayName)
}
