package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/randomizedcoder/go-monitord/internal/collector"
)

// writeJSONFlat writes the snapshot as one object of dotted keys.
func writeJSONFlat(w io.Writer, snap *collector.MonitordStats, prefix string) error {
	flat, err := Flatten(snap, prefix)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Flatten turns the JSON encoding of v into dotted keys, e.g.
// "units.active_units" or "machines.web.pid1.tasks". Arrays of objects are
// keyed by their "name" member when present and by index otherwise.
// Numbers keep their exact JSON text.
func Flatten(v any, prefix string) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	out := make(map[string]any)
	flattenInto(out, prefix, tree)
	return out, nil
}

func flattenInto(out map[string]any, key string, v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			flattenInto(out, join(key, k), child)
		}
	case []any:
		for i, child := range node {
			flattenInto(out, join(key, elementKey(i, child)), child)
		}
	default:
		if key != "" {
			out[key] = node
		}
	}
}

func elementKey(i int, v any) string {
	if obj, ok := v.(map[string]any); ok {
		if name, ok := obj["name"].(string); ok && name != "" {
			return name
		}
	}
	return strconv.Itoa(i)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
