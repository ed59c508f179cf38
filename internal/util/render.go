package util

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RenderCBORPretty turns a decoded CBOR value (such as a COSE key) into
// indented JSON for display. Integer map labels keep their numeric form
// as strings, byte strings render as h'..'.
func RenderCBORPretty(decoded any) (string, error) {
	normalised, err := normaliseCBORForJSON(decoded)
	if err != nil {
		return "", err
	}

	pretty, err := json.MarshalIndent(normalised, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

func normaliseCBORForJSON(value any) (any, error) {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			norm, err := normaliseCBORForJSON(elem)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	case map[any]any:
		type entry struct {
			key string
			val any
		}

		entries := make([]entry, 0, len(v))
		for key, val := range v {
			norm, err := normaliseCBORForJSON(val)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry{key: stringifyCBORKey(key), val: norm})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].key < entries[j].key
		})

		out := make(map[string]any, len(entries))
		for _, e := range entries {
			out[e.key] = e.val
		}
		return out, nil
	case []byte:
		return fmt.Sprintf("h'%x'", v), nil
	default:
		return v, nil
	}
}

func stringifyCBORKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	case []byte:
		return fmt.Sprintf("h'%x'", k)
	default:
		return fmt.Sprint(k)
	}
}
