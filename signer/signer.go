// Package signer holds custody of the client's ECDSA key and produces all
// signatures used by the marketplace: payment-channel vouchers, control-plane
// messages for the provider daemon, and blockchain transactions.
//
// Every message family is domain-separated by a fixed string prefix that the
// daemon verifies; the voucher prefix is the claim-message tag baked into the
// escrow contract.
package signer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/singnet/snet-client-go/types"
)

// ClaimMessagePrefix is the domain tag of voucher signatures. It must match
// what the escrow contract and the provider daemon verify.
const ClaimMessagePrefix = "__MPE_claim_message"

// Control-plane message prefixes, one per daemon RPC.
const (
	GetChannelStatePrefix = "__get_channel_state"
	ListUnclaimedPrefix   = "__list_unclaimed"
	ListInProgressPrefix  = "__list_in_progress"
	StartClaimPrefix      = "__start_claim"
	// FreeCallPrefix is the agreed constant for free trial signatures; the
	// literal does not follow the control-plane naming pattern and must not
	// be normalized.
	FreeCallPrefix = "__prefix_free_trial"
)

// Signer wraps one private key. The key is held process-wide; encryption at
// rest is the identity store's concern, the signer receives raw key material.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewFromHex builds a signer from a hex-encoded private key, with or without
// the 0x prefix.
func NewFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, types.E(types.ErrSignerDecryption, "invalid private key: %v", err)
	}
	return New(key), nil
}

// New builds a signer from an already decoded key.
func New(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the Ethereum address of the held key.
func (s *Signer) Address() common.Address {
	return s.address
}

// VoucherDigest computes the personal-sign digest of a payment voucher:
// keccak256(prefix ‖ mpe ‖ channelID₃₂ ‖ nonce₃₂ ‖ amount₃₂) wrapped with
// the Ethereum signed-message prefix.
func VoucherDigest(mpe common.Address, channelID, nonce, amount *big.Int) []byte {
	message := crypto.Keccak256(
		[]byte(ClaimMessagePrefix),
		mpe.Bytes(),
		bigTo32(channelID),
		bigTo32(nonce),
		bigTo32(amount),
	)
	return accounts.TextHash(message)
}

// SignVoucher signs the voucher tuple. The signature is a deterministic pure
// function of the tuple and the key: signing twice yields identical bytes.
func (s *Signer) SignVoucher(mpe common.Address, channelID, nonce, amount *big.Int) ([]byte, error) {
	return s.sign(VoucherDigest(mpe, channelID, nonce, amount))
}

// MessageDigest hashes an arbitrary concatenated message with keccak256 and
// wraps it with the Ethereum signed-message prefix.
func MessageDigest(parts ...[]byte) []byte {
	return accounts.TextHash(crypto.Keccak256(parts...))
}

// SignMessage signs a prefixed message built from the given parts, in order.
func (s *Signer) SignMessage(parts ...[]byte) ([]byte, error) {
	return s.sign(MessageDigest(parts...))
}

// ControlDigest computes the digest of a control-plane message as
// keccak256(prefix ‖ mpe ‖ parts...) under the signed-message wrapper.
func ControlDigest(prefix string, mpe common.Address, parts ...[]byte) []byte {
	chunks := make([][]byte, 0, len(parts)+2)
	chunks = append(chunks, []byte(prefix), mpe.Bytes())
	chunks = append(chunks, parts...)
	return MessageDigest(chunks...)
}

// SignControl signs a control-plane message for the provider daemon.
func (s *Signer) SignControl(prefix string, mpe common.Address, parts ...[]byte) ([]byte, error) {
	return s.sign(ControlDigest(prefix, mpe, parts...))
}

// VerifyOwn checks that sig was produced by this signer over digest. A
// mismatch means a counterparty returned state this client never authorized
// and is fatal.
func (s *Signer) VerifyOwn(digest, sig []byte) error {
	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		return types.E(types.ErrStateTampered, "signature does not verify: %v", err)
	}
	if recovered != s.address {
		return types.E(types.ErrStateTampered,
			"signature from %s, expected own key %s", recovered.Hex(), s.address.Hex())
	}
	return nil
}

// RecoverAddress recovers the signing address from a 65-byte signature over
// digest, accepting both 0/1 and 27/28 recovery id conventions.
func RecoverAddress(digest, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, types.E(types.ErrStateTampered,
			"signature must be 65 bytes, got %d", len(sig))
	}
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignTx signs a blockchain transaction with EIP-155 replay protection.
func (s *Signer) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), s.key)
}

func (s *Signer) sign(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, types.E(types.ErrSignerLocked, "signing failed: %v", err)
	}
	// The daemon and the escrow contract expect the 27/28 convention.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

func bigTo32(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) >= 32 {
		return b
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// BigTo32 exposes the 32-byte big-endian encoding used in signed messages.
func BigTo32(v *big.Int) []byte {
	return bigTo32(v)
}
