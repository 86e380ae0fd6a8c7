package payment

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// The daemon's state and control services speak plain proto3 with flat
// byte/varint fields. The messages are marshaled by hand over protowire so
// the client does not depend on a stub-generation step.

type wireMarshaler interface {
	marshal() []byte
}

type wireUnmarshaler interface {
	unmarshal(data []byte) error
}

// Codec lets grpc carry the hand-rolled daemon messages. It answers to the
// standard "proto" content subtype the daemon expects.
type Codec struct{}

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(wireMarshaler)
	if !ok {
		return nil, fmt.Errorf("payment codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(wireUnmarshaler)
	if !ok {
		return fmt.Errorf("payment codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}

// ChannelStateRequest asks the daemon for its view of one channel.
type ChannelStateRequest struct {
	ChannelID    []byte // big-endian
	Signature    []byte
	CurrentBlock uint64
}

func (m *ChannelStateRequest) marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, m.ChannelID)
	b = appendBytesField(b, 2, m.Signature)
	if m.CurrentBlock != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, m.CurrentBlock)
	}
	return b
}

// ChannelStateReply is the daemon's report: the current nonce and signed
// amount, plus the previous nonce's pair when a claim is in flight.
type ChannelStateReply struct {
	CurrentNonce         []byte
	CurrentSignedAmount  []byte
	CurrentSignature     []byte
	OldNonceSignedAmount []byte
	OldNonceSignature    []byte
}

func (m *ChannelStateReply) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, payload []byte) {
		switch num {
		case 1:
			m.CurrentNonce = payload
		case 2:
			m.CurrentSignedAmount = payload
		case 3:
			m.CurrentSignature = payload
		case 4:
			m.OldNonceSignedAmount = payload
		case 5:
			m.OldNonceSignature = payload
		}
	})
}

// GetPaymentsListRequest authenticates a provider-side list query.
type GetPaymentsListRequest struct {
	MPEAddress   string
	CurrentBlock uint64
	Signature    []byte
}

func (m *GetPaymentsListRequest) marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, []byte(m.MPEAddress))
	if m.CurrentBlock != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, m.CurrentBlock)
	}
	b = appendBytesField(b, 3, m.Signature)
	return b
}

// PaymentReply is one accumulated payment the daemon holds.
type PaymentReply struct {
	ChannelID    []byte
	ChannelNonce []byte
	SignedAmount []byte
	Signature    []byte
}

func (m *PaymentReply) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, payload []byte) {
		switch num {
		case 1:
			m.ChannelID = payload
		case 2:
			m.ChannelNonce = payload
		case 3:
			m.SignedAmount = payload
		case 4:
			m.Signature = payload
		}
	})
}

// PaymentsListReply lists accumulated payments.
type PaymentsListReply struct {
	Payments []*PaymentReply
}

func (m *PaymentsListReply) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, payload []byte) {
		if num != 1 {
			return
		}
		p := &PaymentReply{}
		if err := p.unmarshal(payload); err == nil {
			m.Payments = append(m.Payments, p)
		}
	})
}

// StartClaimRequest asks the daemon to move a channel's current payment into
// its in-progress set and advance the serving nonce.
type StartClaimRequest struct {
	MPEAddress string
	ChannelID  []byte
	Signature  []byte
}

func (m *StartClaimRequest) marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, []byte(m.MPEAddress))
	b = appendBytesField(b, 2, m.ChannelID)
	b = appendBytesField(b, 3, m.Signature)
	return b
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// walkFields iterates the top-level fields of a proto3 message, handing
// length-delimited payloads to visit. Varint fields are not needed by any
// reply message and are skipped.
func walkFields(data []byte, visit func(num protowire.Number, payload []byte)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch typ {
		case protowire.BytesType:
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			visit(num, payload)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}
