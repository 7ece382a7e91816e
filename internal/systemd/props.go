package systemd

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Props is a property map as returned by GetUnit*PropertiesContext.
type Props map[string]interface{}

// missingError is returned when a property is absent or has another type.
type missingError struct {
	name string
	got  interface{}
}

func (e missingError) Error() string {
	if e.got == nil {
		return fmt.Sprintf("property %s missing", e.name)
	}
	return fmt.Sprintf("property %s has type %T", e.name, e.got)
}

func (p Props) raw(name string) interface{} {
	v := p[name]
	if variant, ok := v.(dbus.Variant); ok {
		return variant.Value()
	}
	return v
}

// Uint64 reads a t (uint64) property.
func (p Props) Uint64(name string) (uint64, error) {
	switch v := p.raw(name).(type) {
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	default:
		return 0, missingError{name: name, got: v}
	}
}

// Uint32 reads a u (uint32) property.
func (p Props) Uint32(name string) (uint32, error) {
	switch v := p.raw(name).(type) {
	case uint32:
		return v, nil
	default:
		return 0, missingError{name: name, got: v}
	}
}

// Int32 reads an i (int32) property.
func (p Props) Int32(name string) (int32, error) {
	switch v := p.raw(name).(type) {
	case int32:
		return v, nil
	default:
		return 0, missingError{name: name, got: v}
	}
}

// Bool reads a b property.
func (p Props) Bool(name string) (bool, error) {
	switch v := p.raw(name).(type) {
	case bool:
		return v, nil
	default:
		return false, missingError{name: name, got: v}
	}
}

// String reads an s or o property.
func (p Props) String(name string) (string, error) {
	switch v := p.raw(name).(type) {
	case string:
		return v, nil
	case dbus.ObjectPath:
		return string(v), nil
	default:
		return "", missingError{name: name, got: v}
	}
}

// Strings reads an as property.
func (p Props) Strings(name string) ([]string, error) {
	switch v := p.raw(name).(type) {
	case []string:
		return v, nil
	default:
		return nil, missingError{name: name, got: v}
	}
}

// Reader accumulates the first error across a series of property reads
// so a collector can read many fields and check once.
type Reader struct {
	Props Props
	Err   error
}

func (r *Reader) Uint64(name string) uint64 {
	v, err := r.Props.Uint64(name)
	r.keep(err)
	return v
}

func (r *Reader) Uint32(name string) uint32 {
	v, err := r.Props.Uint32(name)
	r.keep(err)
	return v
}

func (r *Reader) Int32(name string) int32 {
	v, err := r.Props.Int32(name)
	r.keep(err)
	return v
}

func (r *Reader) Bool(name string) bool {
	v, err := r.Props.Bool(name)
	r.keep(err)
	return v
}

func (r *Reader) String(name string) string {
	v, err := r.Props.String(name)
	r.keep(err)
	return v
}

func (r *Reader) keep(err error) {
	if r.Err == nil && err != nil {
		r.Err = err
	}
}
