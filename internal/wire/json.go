package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FromJSON decodes a JSON document into a Value. Integral numbers become
// KindInt (or KindUint when they exceed int64); numbers with a fraction or
// exponent are kept as their literal string since nothing downstream
// consumes floats. Objects become string-keyed dictionaries.
func FromJSON(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null(), fmt.Errorf("decode json value: %w", err)
	}
	return fromDecoded(raw), nil
}

// UnmarshalJSON lets a Value be embedded directly in JSON-decoded structs.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromDecoded(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return Int(i)
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return Uint(u)
		}
		return String(t.String())
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromDecoded(item)
		}
		return Array(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = fromDecoded(item)
		}
		return StringDict(m)
	default:
		return Null()
	}
}
