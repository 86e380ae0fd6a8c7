// Package payment builds the metadata attached to every marketplace RPC:
// escrow vouchers, free-call tokens, and the channel-state reconciliation
// that keeps the client and the provider daemon honest.
package payment

// gRPC metadata keys of the daemon payment protocol. The names are part of
// the wire contract and must not change.
const (
	// PaymentTypeHeader selects the payment path: "escrow" or "free-call".
	PaymentTypeHeader = "snet-payment-type"
	// ClientTypeHeader identifies the calling client.
	ClientTypeHeader = "snet-client-type"
	// UserInfoHeader carries the caller's Ethereum address.
	UserInfoHeader = "snet-user-info"

	// PaymentChannelIDHeader is the escrow channel id, as a decimal string.
	PaymentChannelIDHeader = "snet-payment-channel-id"
	// PaymentChannelNonceHeader is the channel nonce, as a decimal string.
	PaymentChannelNonceHeader = "snet-payment-channel-nonce"
	// PaymentChannelAmountHeader is the cumulative amount the server may
	// withdraw after this call, as a decimal string.
	PaymentChannelAmountHeader = "snet-payment-channel-amount"
	// PaymentChannelSignatureHeader is the raw 65-byte voucher signature.
	PaymentChannelSignatureHeader = "snet-payment-channel-signature-bin"
	// PaymentMPEAddressHeader pins the voucher to one escrow contract.
	PaymentMPEAddressHeader = "snet-payment-mpe-address"

	// FreeCallAuthTokenHeader is the daemon-issued free-call token bytes.
	FreeCallAuthTokenHeader = "snet-free-call-auth-token-bin"
	// FreeCallTokenExpiryHeader is the block at which the token expires.
	FreeCallTokenExpiryHeader = "snet-free-call-token-expiry-block"
	// FreeCallUserIDHeader identifies the free-call user.
	FreeCallUserIDHeader = "snet-free-call-user-id"
	// CurrentBlockHeader bounds the validity of the request signature.
	CurrentBlockHeader = "snet-current-block-number"
)

// Payment types carried in PaymentTypeHeader.
const (
	PaymentTypeEscrow   = "escrow"
	PaymentTypeFreeCall = "free-call"
)

// ClientType is the value sent in ClientTypeHeader.
const ClientType = "snet-sdk-go"
