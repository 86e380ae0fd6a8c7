package metadata

import (
	"testing"

	"github.com/ipfs/go-cid"
	multihash "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/types"
)

func b58Hash(t *testing.T, data []byte) string {
	t.Helper()
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	require.NoError(t, err)
	return mh.B58String()
}

func TestParseURIRoundTrip(t *testing.T) {
	raw := EncodeURI(StorageIPFS, "QmHashValue")
	assert.Zero(t, len(raw)%32)

	storage, hash, err := ParseURI(raw)
	require.NoError(t, err)
	assert.Equal(t, StorageIPFS, storage)
	assert.Equal(t, "QmHashValue", hash)
}

func TestParseURIStripsPadding(t *testing.T) {
	raw := append([]byte("filecoin://bafyhash"), make([]byte, 13)...)
	storage, hash, err := ParseURI(raw)
	require.NoError(t, err)
	assert.Equal(t, StorageFilecoin, storage)
	assert.Equal(t, "bafyhash", hash)
}

func TestParseURIRejectsUnknownScheme(t *testing.T) {
	_, _, err := ParseURI([]byte("http://example.com/doc.json"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnsupportedScheme))
}

func TestParseURIRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "QmBareHash", "ipfs://"} {
		_, _, err := ParseURI([]byte(raw))
		assert.Error(t, err, "uri %q", raw)
	}
}

func TestVerifyContentBase58(t *testing.T) {
	data := []byte(`{"org_name":"example"}`)
	hash := b58Hash(t, data)

	require.NoError(t, VerifyContent(hash, data))

	err := VerifyContent(hash, append(data, '!'))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrContentHashMismatch))
}

func TestVerifyContentCID(t *testing.T) {
	data := []byte("service metadata body")
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	require.NoError(t, err)
	id := cid.NewCidV1(cid.Raw, mh)

	require.NoError(t, VerifyContent(id.String(), data))

	err = VerifyContent(id.String(), append(data, '!'))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrContentHashMismatch))
}

func TestVerifyContentRejectsGarbageHash(t *testing.T) {
	err := VerifyContent("not-a-hash", []byte("data"))
	require.Error(t, err)
}
