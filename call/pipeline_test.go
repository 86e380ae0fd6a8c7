package call

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/types"
)

func TestEncodeBodyPrefersPayload(t *testing.T) {
	body, err := encodeBody("proto", &Request{Payload: []byte{0x01}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, body)
}

func TestEncodeBodyJSONParams(t *testing.T) {
	body, err := encodeBody("json", &Request{Params: map[string]any{"a": "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(body))
}

func TestEncodeBodyJSONAppliesModifiers(t *testing.T) {
	body, err := encodeBody("json", &Request{Params: map[string]any{
		"b64encode@data": "xyz",
	}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("xyz")), decoded["data"])
}

func TestEncodeBodyProtoNeedsPayload(t *testing.T) {
	_, err := encodeBody("proto", &Request{Params: map[string]any{"a": "b"}})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBadEncoding))
}

func TestDisposeDecodesJSON(t *testing.T) {
	p := &Pipeline{}
	resp := &Response{Payload: []byte(`{"answer": "42"}`)}
	require.NoError(t, p.dispose(&Request{}, resp, "json"))
	assert.Equal(t, "42", resp.JSON["answer"])
}

func TestDisposeWritesWholeResponse(t *testing.T) {
	p := &Pipeline{}
	path := filepath.Join(t.TempDir(), "out.bin")
	resp := &Response{Payload: []byte{0x01, 0x02}}
	require.NoError(t, p.dispose(&Request{SaveTo: path}, resp, "proto"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, raw)
}

func TestDisposeExtractsField(t *testing.T) {
	p := &Pipeline{}
	path := filepath.Join(t.TempDir(), "out.bin")
	image := base64.StdEncoding.EncodeToString([]byte{0xca, 0xfe})
	resp := &Response{Payload: []byte(`{"image": "` + image + `", "status": "ok"}`)}
	require.NoError(t, p.dispose(&Request{SaveTo: path, SaveField: "image"}, resp, "json"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, raw)
}

func TestDisposeMissingFieldFails(t *testing.T) {
	p := &Pipeline{}
	path := filepath.Join(t.TempDir(), "out.bin")
	resp := &Response{Payload: []byte(`{"status": "ok"}`)}
	err := p.dispose(&Request{SaveTo: path, SaveField: "image"}, resp, "json")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBadEncoding))
}
