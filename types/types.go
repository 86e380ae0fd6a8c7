// Package types defines the shared data model of the marketplace client:
// payment channels, vouchers, organization and service metadata, and the
// typed errors surfaced by every component.
package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GroupID is the 32-byte opaque tag selecting a provider payment group.
// It is serialized as standard base64, matching the on-chain bytes32 value.
type GroupID [32]byte

func (g GroupID) String() string {
	return base64.StdEncoding.EncodeToString(g[:])
}

func (g GroupID) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

func (g *GroupID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("group_id is not base64: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("group_id must be 32 bytes, got %d", len(raw))
	}
	copy(g[:], raw)
	return nil
}

// GroupIDFromBase64 decodes a base64 group identifier.
func GroupIDFromBase64(s string) (GroupID, error) {
	var g GroupID
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("group_id is not base64: %w", err)
	}
	if len(raw) != 32 {
		return g, fmt.Errorf("group_id must be 32 bytes, got %d", len(raw))
	}
	copy(g[:], raw)
	return g, nil
}

// Channel is the on-chain state of a single escrow payment channel.
// The chain owns this record; every field mutates only through escrow
// contract transactions.
type Channel struct {
	ID         *big.Int
	Nonce      *big.Int
	Sender     common.Address
	Signer     common.Address
	Recipient  common.Address
	GroupID    GroupID
	Value      *big.Int // cogs locked in the channel
	Expiration *big.Int // block height
}

// ChannelInfo is the locally cached subset of Channel discovered via
// ChannelOpen events. It is a performance hint only and may be rebuilt
// from chain events at any time.
type ChannelInfo struct {
	ID         *BigInt        `json:"channel_id"`
	Sender     common.Address `json:"sender"`
	Signer     common.Address `json:"signer"`
	Recipient  common.Address `json:"recipient"`
	GroupID    GroupID        `json:"group_id"`
	Value      *BigInt        `json:"value"`
	Expiration *BigInt        `json:"expiration"`
}

// Voucher is a signed off-chain authorization the provider redeems on-chain
// via channelClaim. Vouchers are transient: sent over the wire, never stored.
type Voucher struct {
	MPEAddress common.Address
	ChannelID  *big.Int
	Nonce      *big.Int
	Amount     *big.Int // cumulative cogs authorized at this nonce
	Signature  []byte   // 65-byte ECDSA signature
}

// BigInt wraps big.Int with decimal-string JSON encoding so cached channel
// records stay readable and portable.
type BigInt struct {
	big.Int
}

// NewBigInt copies v into a JSON-encodable wrapper.
func NewBigInt(v *big.Int) *BigInt {
	b := new(BigInt)
	b.Set(v)
	return b
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid integer %q", s)
	}
	return nil
}

// Unwrap returns the embedded big.Int.
func (b *BigInt) Unwrap() *big.Int {
	return &b.Int
}
