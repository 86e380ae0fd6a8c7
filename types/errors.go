package types

import (
	"errors"
	"fmt"
)

// Error is the typed error surfaced by all components. Code identifies the
// failure class; the CLI/SDK adapter layer turns it into human text.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// E builds a typed error with a formatted message.
func E(code string, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code string) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// Chain errors
const (
	ErrChainUnreachable   = "chain_unreachable"
	ErrChainReverted      = "chain_reverted"
	ErrChainNonceConflict = "chain_nonce_conflict"
	ErrChainInvalidAddr   = "chain_invalid_address"
	ErrChainGasUnderprice = "chain_gas_underpriced"
	// ErrTxPending reports a broadcast transaction whose receipt was never
	// observed because the caller canceled; Data holds the tx hash. Nothing
	// is rolled back.
	ErrTxPending = "chain_tx_pending"
)

// Content store errors
const (
	ErrContentFetch        = "content_fetch"
	ErrContentHashMismatch = "content_hash_mismatch"
)

// Metadata errors
const (
	ErrMetadataSchema         = "metadata_schema"
	ErrMetadataEscrowMismatch = "metadata_escrow_address_mismatch"
	ErrMetadataUnknownGroup   = "metadata_unknown_group"
)

// Channel errors
const (
	ErrChannelAmbiguous    = "channel_ambiguous"
	ErrChannelNotFound     = "channel_not_found"
	ErrChannelNotMine      = "channel_not_mine"
	ErrChannelInsufficient = "channel_insufficient_funds"
	ErrChannelExpired      = "channel_expired"
	ErrChannelNotExpired   = "channel_not_expired"
)

// State errors. Both are fatal: they imply protocol-level misbehavior and
// the call must not be retried.
const (
	ErrStateTampered = "state_tampered"
	ErrStateDesync   = "state_desynchronized"
)

// Strategy errors
const (
	ErrExpirationTooClose = "strategy_expiration_too_close"
	ErrExpirationTooFar   = "strategy_expiration_too_far"
	ErrStrategyRefused    = "strategy_refused"
)

// Signer errors
const (
	ErrSignerLocked     = "signer_locked"
	ErrSignerDecryption = "signer_decryption_failed"
)

// Protocol errors
const (
	ErrUnsupportedScheme  = "protocol_unsupported_scheme"
	ErrBadEncoding        = "protocol_bad_encoding"
	ErrServiceUnreachable = "protocol_service_unreachable"
)
