package dbusstats

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/randomizedcoder/go-monitord/internal/wire"
)

func u32(v uint32) *uint32 { return &v }

func peer(id string, creds, stats map[string]wire.Value) wire.Value {
	return wire.Struct(wire.String(id), wire.StringDict(creds), wire.StringDict(stats))
}

// =============================================================================
// Peer accounting
// =============================================================================

func TestDecodePeerAccounting_NotArray(t *testing.T) {
	for _, v := range []wire.Value{wire.Null(), wire.Uint(0), wire.String("x"), wire.Struct()} {
		if peers, ok := DecodePeerAccounting(v); ok || peers != nil {
			t.Errorf("DecodePeerAccounting(%v) = (%v, %v), want (nil, false)", v, peers, ok)
		}
	}
}

func TestDecodePeerAccounting_Empty(t *testing.T) {
	peers, ok := DecodePeerAccounting(wire.Array())
	if !ok || len(peers) != 0 {
		t.Errorf("DecodePeerAccounting([]) = (%v, %v), want (empty, true)", peers, ok)
	}
}

func TestDecodePeerAccounting_WellFormed(t *testing.T) {
	v := wire.Array(
		peer(":1.1",
			map[string]wire.Value{
				"UnixUserID":   wire.Uint(0),
				"ProcessID":    wire.Uint(1),
				"UnixGroupIDs": wire.Array(wire.Uint(0), wire.Uint(10)),
			},
			map[string]wire.Value{
				"NameObjects": wire.Uint(2),
				"Matches":     wire.Uint(14),
			}),
		peer(":1.2",
			map[string]wire.Value{"UnixUserID": wire.Uint(1000)},
			map[string]wire.Value{"IncomingBytes": wire.Uint(512)}),
	)

	peers, ok := DecodePeerAccounting(v)
	if !ok {
		t.Fatal("ok = false")
	}
	if len(peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(peers))
	}

	p1 := peers[":1.1"]
	if p1.ID != ":1.1" || *p1.UnixUserID != 0 || *p1.ProcessID != 1 {
		t.Errorf("peer :1.1 = %+v", p1)
	}
	if p1.UnixGroupIDs == nil || len(*p1.UnixGroupIDs) != 2 || (*p1.UnixGroupIDs)[1] != 10 {
		t.Errorf("UnixGroupIDs = %v, want [0 10]", p1.UnixGroupIDs)
	}
	if *p1.NameObjects != 2 || *p1.Matches != 14 || p1.MatchBytes != nil {
		t.Errorf("counters = %+v", p1.Counters)
	}
	if p1.WellKnownName != nil {
		t.Error("decoder must not set well-known names")
	}

	p2 := peers[":1.2"]
	if p2.ProcessID != nil || *p2.IncomingBytes != 512 {
		t.Errorf("peer :1.2 = %+v", p2)
	}
}

func TestDecodePeerAccounting_SkipsMalformedElements(t *testing.T) {
	good := peer(":1.1", map[string]wire.Value{"ProcessID": wire.Uint(5)}, nil)

	tests := []struct {
		name string
		bad  wire.Value
	}{
		{"not a struct", wire.String(":1.9")},
		{"array instead of struct", wire.Array(wire.String(":1.9"), wire.Dict(), wire.Dict())},
		{"too few fields", wire.Struct(wire.String(":1.9"), wire.Dict())},
		{"id not a string", wire.Struct(wire.Uint(9), wire.Dict(), wire.Dict())},
		{"credentials not a dict", wire.Struct(wire.String(":1.9"), wire.Array(), wire.Dict())},
		{"stats not a dict", wire.Struct(wire.String(":1.9"), wire.Dict(), wire.Uint(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peers, ok := DecodePeerAccounting(wire.Array(good, tt.bad))
			if !ok {
				t.Fatal("ok = false")
			}
			if len(peers) != 1 {
				t.Fatalf("got %d peers, want 1: %+v", len(peers), peers)
			}
			if _, ok := peers[":1.1"]; !ok {
				t.Error("well-formed peer missing")
			}
		})
	}
}

func TestDecodePeerAccounting_WrongTypedKeys(t *testing.T) {
	v := wire.Array(peer(":1.1",
		map[string]wire.Value{
			"UnixUserID":   wire.String("root"),
			"ProcessID":    wire.Uint(42),
			"UnixGroupIDs": wire.Uint(0),
		},
		map[string]wire.Value{
			"NameObjects":   wire.Int(-1),
			"Matches":       wire.Uint(1 << 40),
			"ReplyObjects":  wire.Uint(3),
			"IncomingBytes": wire.Int(5),
		}))

	peers, _ := DecodePeerAccounting(v)
	p := peers[":1.1"]
	if p.UnixUserID != nil {
		t.Errorf("UnixUserID = %v, want nil", *p.UnixUserID)
	}
	if p.ProcessID == nil || *p.ProcessID != 42 {
		t.Errorf("ProcessID = %v, want 42", p.ProcessID)
	}
	if p.UnixGroupIDs != nil {
		t.Errorf("UnixGroupIDs = %v, want nil", *p.UnixGroupIDs)
	}
	if p.NameObjects != nil || p.Matches != nil {
		t.Errorf("out-of-range counters should be nil: %+v", p.Counters)
	}
	if p.IncomingBytes != nil {
		t.Errorf("IncomingBytes = %v, want nil for a signed value", *p.IncomingBytes)
	}
	if p.ReplyObjects == nil || *p.ReplyObjects != 3 {
		t.Errorf("ReplyObjects = %v, want 3", p.ReplyObjects)
	}
}

func TestDecodePeerAccounting_DuplicateIDLastWins(t *testing.T) {
	v := wire.Array(
		peer(":1.1", nil, map[string]wire.Value{"Matches": wire.Uint(1)}),
		peer(":1.1", nil, map[string]wire.Value{"Matches": wire.Uint(2)}),
	)
	peers, _ := DecodePeerAccounting(v)
	if len(peers) != 1 || *peers[":1.1"].Matches != 2 {
		t.Errorf("peers = %+v, want one peer with matches=2", peers)
	}
}

// =============================================================================
// User accounting
// =============================================================================

func quota(name string, cur, limit uint64) wire.Value {
	return wire.Struct(wire.String(name), wire.Uint(cur), wire.Uint(limit))
}

func TestDecodeUserAccounting(t *testing.T) {
	v := wire.Array(
		wire.Struct(wire.Uint(0), wire.Array(
			quota("Bytes", 536843240, 536870912),
			quota("Fds", 1000, 1024),
			quota("Matches", 9000, 16384),
			quota("Objects", 100, 8192),
			quota("Unknown", 1, 2),
		), wire.Dict()),
		wire.Struct(wire.Uint(1000), wire.Array(
			quota("Bytes", 10, 20),
			wire.Struct(wire.String("Fds"), wire.String("1"), wire.Uint(2)),
			wire.Struct(wire.String("Matches"), wire.Uint(1)),
			wire.Uint(7),
		)),
	)

	users, ok := DecodeUserAccounting(v)
	if !ok {
		t.Fatal("ok = false")
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}

	root := users[0]
	if root.Bytes == nil || root.Bytes.Usage() != 27672 {
		t.Errorf("root bytes = %+v, want usage 27672", root.Bytes)
	}
	if root.Fds == nil || root.Matches == nil || root.Objects == nil {
		t.Errorf("root quotas missing: %+v", root)
	}

	u := users[1000]
	if u.Bytes == nil || *u.Bytes != (CurMaxPair{Cur: 10, Max: 20}) {
		t.Errorf("uid 1000 bytes = %+v", u.Bytes)
	}
	if u.Fds != nil || u.Matches != nil {
		t.Errorf("malformed triples should be skipped: %+v", u)
	}
}

func TestDecodeUserAccounting_Malformed(t *testing.T) {
	if users, ok := DecodeUserAccounting(wire.Uint(0)); ok || users != nil {
		t.Errorf("non-array = (%v, %v), want (nil, false)", users, ok)
	}

	users, ok := DecodeUserAccounting(wire.Array(
		wire.Struct(wire.String("not_uid"), wire.Uint(10), wire.Uint(20)),
		wire.Struct(wire.Uint(5)),
		wire.Struct(wire.Uint(6), wire.Uint(1)),
	))
	if !ok || len(users) != 0 {
		t.Errorf("malformed elements = (%v, %v), want (empty, true)", users, ok)
	}
}

func TestCurMaxPair_Usage(t *testing.T) {
	tests := []struct {
		pair CurMaxPair
		want uint32
	}{
		{CurMaxPair{Cur: 10, Max: 100}, 90},
		{CurMaxPair{Cur: 100, Max: 100}, 0},
		{CurMaxPair{Cur: 0, Max: 0}, 0},
		{CurMaxPair{Cur: 101, Max: 100}, 0},
	}
	for _, tt := range tests {
		if got := tt.pair.Usage(); got != tt.want {
			t.Errorf("%+v.Usage() = %d, want %d", tt.pair, got, tt.want)
		}
	}
}

func TestDecodePeerAccounting_EmptyGroupList(t *testing.T) {
	v := wire.Array(
		peer(":1.1", map[string]wire.Value{"UnixGroupIDs": wire.Array()}, map[string]wire.Value{}),
		peer(":1.2", map[string]wire.Value{}, map[string]wire.Value{}),
	)
	peers, _ := DecodePeerAccounting(v)

	reported := peers[":1.1"]
	if reported.UnixGroupIDs == nil || len(*reported.UnixGroupIDs) != 0 {
		t.Errorf("reported empty list = %v, want non-nil empty", reported.UnixGroupIDs)
	}
	if peers[":1.2"].UnixGroupIDs != nil {
		t.Errorf("unreported list = %v, want nil", *peers[":1.2"].UnixGroupIDs)
	}

	for _, tt := range []struct {
		id   string
		want bool
	}{{":1.1", true}, {":1.2", false}} {
		data, err := json.Marshal(peers[tt.id])
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Contains(string(data), `"unix_group_ids":[]`); got != tt.want {
			t.Errorf("%s json = %s, want unix_group_ids present = %v", tt.id, data, tt.want)
		}
	}
}
