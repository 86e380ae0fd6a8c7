package call

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/types"
)

func TestTransformParamsPassThrough(t *testing.T) {
	out, err := TransformParams(map[string]any{
		"text":  "hello",
		"count": float64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out["text"])
	assert.Equal(t, float64(3), out["count"])
}

func TestTransformParamsB64Encode(t *testing.T) {
	out, err := TransformParams(map[string]any{
		"b64encode@data": "raw bytes",
	})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("raw bytes")), out["data"])
}

func TestTransformParamsB64Decode(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("payload"))
	out, err := TransformParams(map[string]any{
		"b64decode@data": encoded,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), out["data"])
}

func TestTransformParamsFileChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0o644))

	out, err := TransformParams(map[string]any{
		"file@b64encode@image": path,
	})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03}), out["image"])
}

func TestTransformParamsNested(t *testing.T) {
	out, err := TransformParams(map[string]any{
		"outer": map[string]any{
			"b64encode@inner": "x",
		},
		"list": []any{
			map[string]any{"b64encode@v": "y"},
			"plain",
		},
	})
	require.NoError(t, err)
	outer := out["outer"].(map[string]any)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("x")), outer["inner"])
	list := out["list"].([]any)
	first := list[0].(map[string]any)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("y")), first["v"])
	assert.Equal(t, "plain", list[1])
}

func TestTransformParamsUnknownModifier(t *testing.T) {
	_, err := TransformParams(map[string]any{"zip@data": "x"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBadEncoding))
}

func TestTransformParamsMissingFile(t *testing.T) {
	_, err := TransformParams(map[string]any{"file@data": "/no/such/file"})
	require.Error(t, err)
}

func TestTransformParamsModifierOnObject(t *testing.T) {
	_, err := TransformParams(map[string]any{
		"b64encode@obj": map[string]any{"k": "v"},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBadEncoding))
}
