package wire

import (
	"reflect"

	"github.com/godbus/dbus/v5"
)

// FromDBus converts a value produced by godbus into a Value.
//
// Variants are flattened. godbus decodes a D-Bus struct held in a variant
// as []interface{}, so a slice of exactly that type becomes a KindStruct;
// every other slice becomes a KindArray. Maps become dictionaries.
// Anything unrecognised becomes null.
func FromDBus(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case dbus.Variant:
		return FromDBus(t.Value())
	case *dbus.Variant:
		if t == nil {
			return Null()
		}
		return FromDBus(t.Value())
	case bool:
		return Bool(t)
	case byte:
		return Uint(uint64(t))
	case uint16:
		return Uint(uint64(t))
	case uint32:
		return Uint(uint64(t))
	case uint64:
		return Uint(t)
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case int:
		return Int(int64(t))
	case uint:
		return Uint(uint64(t))
	case dbus.UnixFDIndex:
		return Uint(uint64(t))
	case string:
		return String(t)
	case dbus.ObjectPath:
		return String(string(t))
	case dbus.Signature:
		return String(t.String())
	case []interface{}:
		fields := make([]Value, len(t))
		for i, f := range t {
			fields[i] = FromDBus(f)
		}
		return Struct(fields...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromDBus(rv.Index(i).Interface())
		}
		return Array(items...)
	case reflect.Map:
		entries := make([]Entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, Entry{
				Key:   FromDBus(iter.Key().Interface()),
				Value: FromDBus(iter.Value().Interface()),
			})
		}
		return Dict(entries...)
	case reflect.Struct:
		fields := make([]Value, rv.NumField())
		for i := range fields {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			fields[i] = FromDBus(rv.Field(i).Interface())
		}
		return Struct(fields...)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null()
		}
		return FromDBus(rv.Elem().Interface())
	}
	return Null()
}
