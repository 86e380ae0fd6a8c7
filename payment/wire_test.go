package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestChannelStateRequestMarshal(t *testing.T) {
	req := &ChannelStateRequest{
		ChannelID:    []byte{0x01, 0x02},
		Signature:    []byte{0xaa},
		CurrentBlock: 12345,
	}
	raw, err := Codec{}.Marshal(req)
	require.NoError(t, err)

	var gotID, gotSig []byte
	var gotBlock uint64
	err = walkFields(raw, func(num protowire.Number, payload []byte) {
		switch num {
		case 1:
			gotID = payload
		case 2:
			gotSig = payload
		}
	})
	require.NoError(t, err)
	assert.Equal(t, req.ChannelID, gotID)
	assert.Equal(t, req.Signature, gotSig)

	// The varint field is not surfaced by walkFields; decode it directly.
	rest := raw
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		require.Positive(t, n)
		rest = rest[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(rest)
			require.Positive(t, n)
			rest = rest[n:]
			if num == 3 {
				gotBlock = v
			}
		default:
			_, n := protowire.ConsumeBytes(rest)
			require.Positive(t, n)
			rest = rest[n:]
		}
	}
	assert.Equal(t, uint64(12345), gotBlock)
}

func TestChannelStateReplyUnmarshal(t *testing.T) {
	var raw []byte
	raw = appendBytesField(raw, 1, []byte{0x00})
	raw = appendBytesField(raw, 2, []byte{0x01, 0x2c})
	raw = appendBytesField(raw, 3, make([]byte, 65))
	raw = appendBytesField(raw, 4, []byte{0x64})
	raw = appendBytesField(raw, 5, make([]byte, 65))

	var reply ChannelStateReply
	require.NoError(t, Codec{}.Unmarshal(raw, &reply))
	assert.Equal(t, []byte{0x00}, reply.CurrentNonce)
	assert.Equal(t, []byte{0x01, 0x2c}, reply.CurrentSignedAmount)
	assert.Len(t, reply.CurrentSignature, 65)
	assert.Equal(t, []byte{0x64}, reply.OldNonceSignedAmount)
}

func TestChannelStateReplyToleratesMissingFields(t *testing.T) {
	var raw []byte
	raw = appendBytesField(raw, 1, []byte{0x01})

	var reply ChannelStateReply
	require.NoError(t, Codec{}.Unmarshal(raw, &reply))
	assert.Equal(t, []byte{0x01}, reply.CurrentNonce)
	assert.Nil(t, reply.CurrentSignedAmount)
	assert.Nil(t, reply.OldNonceSignedAmount)
}

func TestPaymentsListReplyUnmarshal(t *testing.T) {
	var first []byte
	first = appendBytesField(first, 1, []byte{0x01})
	first = appendBytesField(first, 3, []byte{0x0a})
	var second []byte
	second = appendBytesField(second, 1, []byte{0x02})
	second = appendBytesField(second, 3, []byte{0x14})

	var raw []byte
	raw = appendBytesField(raw, 1, first)
	raw = appendBytesField(raw, 1, second)

	var reply PaymentsListReply
	require.NoError(t, Codec{}.Unmarshal(raw, &reply))
	require.Len(t, reply.Payments, 2)
	assert.Equal(t, []byte{0x01}, reply.Payments[0].ChannelID)
	assert.Equal(t, []byte{0x0a}, reply.Payments[0].SignedAmount)
	assert.Equal(t, []byte{0x02}, reply.Payments[1].ChannelID)
}

func TestWalkFieldsRejectsTruncatedInput(t *testing.T) {
	var raw []byte
	raw = appendBytesField(raw, 1, []byte{0x01, 0x02, 0x03})
	err := walkFields(raw[:len(raw)-1], func(protowire.Number, []byte) {})
	require.Error(t, err)
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	_, err := Codec{}.Marshal(struct{}{})
	require.Error(t, err)
	err = Codec{}.Unmarshal(nil, struct{}{})
	require.Error(t, err)
}
