package wire

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/godbus/dbus/v5"
)

// =============================================================================
// Accessors
// =============================================================================

func TestValue_Uint32(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		want   uint32
		wantOK bool
	}{
		{"uint", Uint(42), 42, true},
		{"uint max", Uint(math.MaxUint32), math.MaxUint32, true},
		{"uint overflow", Uint(math.MaxUint32 + 1), 0, false},
		{"non-negative int", Int(7), 7, true},
		{"negative int", Int(-1), 0, false},
		{"string", String("42"), 0, false},
		{"null", Null(), 0, false},
		{"bool", Bool(true), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.Uint32()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Uint32() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestValue_StrictUint32(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		want   uint32
		wantOK bool
	}{
		{"uint", Uint(42), 42, true},
		{"uint overflow", Uint(math.MaxUint32 + 1), 0, false},
		{"non-negative int", Int(7), 0, false},
		{"negative int", Int(-1), 0, false},
		{"string", String("42"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.StrictUint32()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("StrictUint32() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestValue_ShapeMismatch(t *testing.T) {
	s := String("x")
	if _, ok := s.Items(); ok {
		t.Error("Items() on string should not be ok")
	}
	if _, ok := s.Fields(); ok {
		t.Error("Fields() on string should not be ok")
	}
	if _, ok := s.Entries(); ok {
		t.Error("Entries() on string should not be ok")
	}
	if _, ok := s.Lookup("k"); ok {
		t.Error("Lookup() on string should not be ok")
	}
	if _, ok := Array(Uint(1)).Fields(); ok {
		t.Error("Fields() on array should not be ok")
	}
	if _, ok := Struct(Uint(1)).Items(); ok {
		t.Error("Items() on struct should not be ok")
	}
}

func TestValue_Lookup(t *testing.T) {
	d := Dict(
		Entry{Key: String("A"), Value: Uint(1)},
		Entry{Key: Uint(9), Value: Uint(2)},
		Entry{Key: String("A"), Value: Uint(3)},
		Entry{Key: String("B"), Value: String("wrong type")},
		Entry{Key: String("C"), Value: Array(Uint(1), String("x"), Int(2), Uint(3))},
		Entry{Key: String("D"), Value: Int(4)},
	)

	if got := d.LookupUint32("A"); got == nil || *got != 3 {
		t.Errorf("LookupUint32(A) = %v, want 3 (last entry wins)", got)
	}
	if got := d.LookupUint32("B"); got != nil {
		t.Errorf("LookupUint32(B) = %v, want nil for wrong type", *got)
	}
	if got := d.LookupUint32("D"); got != nil {
		t.Errorf("LookupUint32(D) = %v, want nil for signed value", *got)
	}
	if got := d.LookupUint32("missing"); got != nil {
		t.Errorf("LookupUint32(missing) = %v, want nil", *got)
	}
	got := d.LookupUint32s("C")
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("LookupUint32s(C) = %v, want [1 3]", got)
	}
	if got := d.LookupUint32s("A"); got != nil {
		t.Errorf("LookupUint32s(A) = %v, want nil for non-array", got)
	}
}

func TestValue_String(t *testing.T) {
	v := Struct(String("a"), Array(Uint(1), Int(-2)), Dict(Entry{Key: String("k"), Value: Bool(true)}), Null())
	want := `("a", [1, -2], {"k": true}, null)`
	if got := v.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

// =============================================================================
// FromDBus
// =============================================================================

func TestFromDBus_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
	}{
		{"nil", nil, KindNull},
		{"bool", true, KindBool},
		{"byte", byte(1), KindUint},
		{"uint16", uint16(1), KindUint},
		{"uint32", uint32(1), KindUint},
		{"uint64", uint64(1), KindUint},
		{"int16", int16(-1), KindInt},
		{"int32", int32(-1), KindInt},
		{"int64", int64(-1), KindInt},
		{"string", "s", KindString},
		{"object path", dbus.ObjectPath("/org/freedesktop/DBus"), KindString},
		{"variant", dbus.MakeVariant(uint32(5)), KindUint},
		{"nested variant", dbus.MakeVariant(dbus.MakeVariant("x")), KindString},
		{"unsupported", struct{ ch chan int }{}, KindStruct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromDBus(tt.in).Kind(); got != tt.kind {
				t.Errorf("FromDBus(%v).Kind() = %v, want %v", tt.in, got, tt.kind)
			}
		})
	}
}

func TestFromDBus_Containers(t *testing.T) {
	// a(sa{sv}a{su}) as godbus hands it back inside a variant
	peers := [][]interface{}{
		{
			":1.5",
			map[string]dbus.Variant{"UnixUserID": dbus.MakeVariant(uint32(0))},
			map[string]uint32{"Matches": 4},
		},
	}

	v := FromDBus(peers)
	items, ok := v.Items()
	if !ok || len(items) != 1 {
		t.Fatalf("Items() = (%v, %v), want one element", items, ok)
	}
	fields, ok := items[0].Fields()
	if !ok || len(fields) != 3 {
		t.Fatalf("Fields() = (%v, %v), want three fields", fields, ok)
	}
	if name, _ := fields[0].Str(); name != ":1.5" {
		t.Errorf("peer name = %q, want :1.5", name)
	}
	if uid := fields[1].LookupUint32("UnixUserID"); uid == nil || *uid != 0 {
		t.Errorf("UnixUserID = %v, want 0", uid)
	}
	if m := fields[2].LookupUint32("Matches"); m == nil || *m != 4 {
		t.Errorf("Matches = %v, want 4", m)
	}
}

func TestFromDBus_TypedSlice(t *testing.T) {
	v := FromDBus([]uint32{1, 2, 3})
	if v.Kind() != KindArray {
		t.Fatalf("Kind() = %v, want array", v.Kind())
	}
	items, _ := v.Items()
	if len(items) != 3 {
		t.Errorf("len(items) = %d, want 3", len(items))
	}
}

// =============================================================================
// FromJSON
// =============================================================================

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
	}{
		{"null", `null`, KindNull},
		{"empty", ``, KindNull},
		{"string", `"active"`, KindString},
		{"int", `12`, KindInt},
		{"negative", `-3`, KindInt},
		{"huge", `18446744073709551615`, KindUint},
		{"float kept as literal", `1.5`, KindString},
		{"bool", `false`, KindBool},
		{"array", `[1, "a"]`, KindArray},
		{"object", `{"type": "service"}`, KindDict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromJSON([]byte(tt.in))
			if err != nil {
				t.Fatalf("FromJSON(%q) error: %v", tt.in, err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("FromJSON(%q).Kind() = %v, want %v", tt.in, v.Kind(), tt.kind)
			}
		})
	}
}

func TestFromJSON_Invalid(t *testing.T) {
	if _, err := FromJSON([]byte(`{"broken"`)); err == nil {
		t.Error("FromJSON should fail on truncated input")
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var rec struct {
		Value  Value `json:"value"`
		Fields Value `json:"fields"`
	}
	if err := json.Unmarshal([]byte(`{"value": 3, "fields": {"state": "failed"}}`), &rec); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if n, ok := rec.Value.Uint32(); !ok || n != 3 {
		t.Errorf("value = (%d, %v), want (3, true)", n, ok)
	}
	state, ok := rec.Fields.Lookup("state")
	if !ok {
		t.Fatal("Lookup(state) not ok")
	}
	if s, _ := state.Str(); s != "failed" {
		t.Errorf("state = %q, want failed", s)
	}
}
