// Package call orchestrates one marketplace RPC: resolve metadata, select or
// open a channel, reconcile state, consult the funding strategy, stamp the
// request with payment metadata, and invoke the remote endpoint.
package call

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/singnet/snet-client-go/types"
)

// Value-level modifiers chained before a field key with '@', applied left to
// right: "file@b64encode@image" reads the file named by the value and
// base64-encodes its bytes into field "image".
const (
	modifierFile      = "file"
	modifierB64Encode = "b64encode"
	modifierB64Decode = "b64decode"
)

// TransformParams resolves modifier-decorated keys in a request parameter
// tree. Nested maps and slices are walked; unmodified entries pass through.
func TransformParams(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for key, value := range params {
		modifiers, field := splitModifiers(key)

		switch v := value.(type) {
		case map[string]any:
			if len(modifiers) > 0 {
				return nil, types.E(types.ErrBadEncoding,
					"field %q: modifiers apply to scalar values, not objects", key)
			}
			nested, err := TransformParams(v)
			if err != nil {
				return nil, err
			}
			out[field] = nested
		case []any:
			if len(modifiers) > 0 {
				return nil, types.E(types.ErrBadEncoding,
					"field %q: modifiers apply to scalar values, not arrays", key)
			}
			transformed, err := transformSlice(v)
			if err != nil {
				return nil, err
			}
			out[field] = transformed
		default:
			resolved, err := applyModifiers(modifiers, field, value)
			if err != nil {
				return nil, err
			}
			out[field] = resolved
		}
	}
	return out, nil
}

func transformSlice(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			nested, err := TransformParams(m)
			if err != nil {
				return nil, err
			}
			out[i] = nested
			continue
		}
		out[i] = item
	}
	return out, nil
}

func splitModifiers(key string) (modifiers []string, field string) {
	parts := strings.Split(key, "@")
	if len(parts) == 1 {
		return nil, key
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

func applyModifiers(modifiers []string, field string, value any) (any, error) {
	current := value
	for _, mod := range modifiers {
		s, ok := current.(string)
		switch mod {
		case modifierFile:
			if !ok {
				return nil, types.E(types.ErrBadEncoding,
					"field %q: file modifier needs a path string, got %T", field, current)
			}
			raw, err := os.ReadFile(s)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			current = raw
		case modifierB64Encode:
			raw, err := toBytes(current)
			if err != nil {
				return nil, types.E(types.ErrBadEncoding, "field %q: %v", field, err)
			}
			current = base64.StdEncoding.EncodeToString(raw)
		case modifierB64Decode:
			if !ok {
				return nil, types.E(types.ErrBadEncoding,
					"field %q: b64decode needs a string, got %T", field, current)
			}
			raw, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, types.E(types.ErrBadEncoding, "field %q: %v", field, err)
			}
			current = raw
		default:
			return nil, types.E(types.ErrBadEncoding,
				"field %q: unknown modifier %q", field, mod)
		}
	}
	return current, nil
}

func toBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("cannot encode %T as bytes", v)
	}
}
