// Package metadata resolves organization and service descriptors: registry
// record to content URI, content-addressed fetch, integrity verification,
// and JSON decoding with schema validation.
package metadata

import (
	"bytes"
	"strings"

	"github.com/ipfs/go-cid"
	multihash "github.com/multiformats/go-multihash"

	"github.com/singnet/snet-client-go/types"
)

// Storage backends a metadata URI can point at.
const (
	StorageIPFS     = "ipfs"
	StorageFilecoin = "filecoin"
)

// ParseURI decodes a contract-stored metadata URI. The on-chain bytes field
// is NUL-padded to a multiple of 32 bytes.
func ParseURI(raw []byte) (storage, hash string, err error) {
	s := strings.TrimRight(string(raw), "\x00")
	i := strings.Index(s, "://")
	if i < 0 {
		return "", "", types.E(types.ErrMetadataSchema, "metadata URI %q has no scheme", s)
	}
	storage, hash = s[:i], s[i+3:]
	if storage != StorageIPFS && storage != StorageFilecoin {
		return "", "", types.E(types.ErrUnsupportedScheme, "unsupported metadata storage %q", storage)
	}
	if hash == "" {
		return "", "", types.E(types.ErrMetadataSchema, "metadata URI %q has empty hash", s)
	}
	return storage, hash, nil
}

// EncodeURI renders a (storage, hash) pair into the padded on-chain form.
// ParseURI(EncodeURI(s, h)) yields (s, h) again.
func EncodeURI(storage, hash string) []byte {
	s := storage + "://" + hash
	padded := (len(s) + 31) / 32 * 32
	out := make([]byte, padded)
	copy(out, s)
	return out
}

// VerifyContent checks that data hashes to the content identifier named in
// the URI. Base58 multihashes (ipfs://Qm…) and CIDs (filecoin://bafy…, and
// CID-form ipfs hashes) are both accepted.
func VerifyContent(hash string, data []byte) error {
	if strings.HasPrefix(hash, "Qm") {
		want, err := multihash.FromB58String(hash)
		if err != nil {
			return types.E(types.ErrContentHashMismatch, "undecodable multihash %q: %v", hash, err)
		}
		got, err := multihash.Sum(data, multihash.SHA2_256, -1)
		if err != nil {
			return types.E(types.ErrContentHashMismatch, "hashing fetched blob: %v", err)
		}
		if !bytes.Equal(want, got) {
			return types.E(types.ErrContentHashMismatch,
				"fetched blob hashes to %s, URI names %s", got.B58String(), hash)
		}
		return nil
	}

	want, err := cid.Decode(hash)
	if err != nil {
		return types.E(types.ErrContentHashMismatch, "undecodable cid %q: %v", hash, err)
	}
	got, err := want.Prefix().Sum(data)
	if err != nil {
		return types.E(types.ErrContentHashMismatch, "hashing fetched blob: %v", err)
	}
	if !got.Equals(want) {
		return types.E(types.ErrContentHashMismatch,
			"fetched blob hashes to %s, URI names %s", got.String(), hash)
	}
	return nil
}
