package dbusstats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"
)

type fakeBus struct {
	stats    map[string]dbus.Variant
	statsErr error
	names    []string
	owners   map[string]string
	listErr  error
}

func (f *fakeBus) GetStats(context.Context) (map[string]dbus.Variant, error) {
	return f.stats, f.statsErr
}

func (f *fakeBus) ListNames(context.Context) ([]string, error) {
	return f.names, f.listErr
}

func (f *fakeBus) GetNameOwner(_ context.Context, name string) (string, error) {
	owner, ok := f.owners[name]
	if !ok {
		return "", errors.New("name has no owner")
	}
	return owner, nil
}

type fakeCGroups map[uint32]string

func (f fakeCGroups) CGroupPath(pid uint32) (string, error) {
	path, ok := f[pid]
	if !ok {
		return "", errors.New("no such process")
	}
	return path, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokerStats mimics what godbus hands back for a dbus-broker GetStats reply.
func brokerStats() map[string]dbus.Variant {
	peers := [][]interface{}{
		{":1.1",
			map[string]dbus.Variant{
				"UnixUserID": dbus.MakeVariant(uint32(0)),
				"ProcessID":  dbus.MakeVariant(uint32(100)),
			},
			map[string]uint32{"NameObjects": 1, "Matches": 4, "IncomingBytes": 10},
		},
		{":1.2",
			map[string]dbus.Variant{
				"UnixUserID": dbus.MakeVariant(uint32(1000)),
				"ProcessID":  dbus.MakeVariant(uint32(200)),
			},
			map[string]uint32{"NameObjects": 2, "Matches": 6},
		},
		{":1.3",
			map[string]dbus.Variant{"ProcessID": dbus.MakeVariant(uint32(300))},
			map[string]uint32{"Matches": 1},
		},
	}
	users := [][]interface{}{
		{uint32(0), [][]interface{}{{"Bytes", uint32(90), uint32(100)}}, map[uint32]map[string]uint32{}},
		{uint32(999999), [][]interface{}{{"Fds", uint32(1), uint32(5)}}, map[uint32]map[string]uint32{}},
	}
	return map[string]dbus.Variant{
		"Serial":            dbus.MakeVariant(uint32(77)),
		"ActiveConnections": dbus.MakeVariant(uint32(12)),
		"BusNames":          dbus.MakeVariant(uint32(30)),
		"MatchRules":        dbus.MakeVariant("not a number"),
		PeerAccountingKey:   dbus.MakeVariant(peers),
		UserAccountingKey:   dbus.MakeVariant(users),
	}
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		stats: brokerStats(),
		names: []string{"org.freedesktop.DBus", ":1.1", "org.freedesktop.systemd1", ":1.2", "org.gone"},
		owners: map[string]string{
			"org.freedesktop.DBus":     "org.freedesktop.DBus",
			"org.freedesktop.systemd1": ":1.1",
		},
	}
}

func TestCollect_Scalars(t *testing.T) {
	c := NewCollector(newFakeBus(), Config{}, nil, discard())
	s, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if s.Serial == nil || *s.Serial != 77 || *s.ActiveConnections != 12 || *s.BusNames != 30 {
		t.Errorf("scalars = %+v", s)
	}
	if s.MatchRules != nil {
		t.Errorf("wrong-typed MatchRules should be nil, got %d", *s.MatchRules)
	}
	if s.PeakBusNames != nil {
		t.Error("absent key should be nil")
	}
	if s.PeerAccounting != nil || s.UserAccounting != nil || s.CGroupAccounting != nil {
		t.Error("accounting sections must stay nil when disabled")
	}
}

func TestCollect_Gating(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantPeers  bool
		wantUsers  bool
		wantCGroup bool
	}{
		{"peers only", Config{PeerStats: true}, true, false, false},
		{"users only", Config{UserStats: true}, false, true, false},
		{"cgroups only", Config{CGroupStats: true}, false, false, true},
		{"everything", Config{PeerStats: true, UserStats: true, CGroupStats: true}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cg := fakeCGroups{100: "/system.slice/systemd.service", 200: "/user.slice/user-1000.slice"}
			s, err := NewCollector(newFakeBus(), tt.cfg, cg, discard()).Collect(context.Background())
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if (s.PeerAccounting != nil) != tt.wantPeers {
				t.Errorf("peer accounting present = %v, want %v", s.PeerAccounting != nil, tt.wantPeers)
			}
			if (s.UserAccounting != nil) != tt.wantUsers {
				t.Errorf("user accounting present = %v, want %v", s.UserAccounting != nil, tt.wantUsers)
			}
			if (s.CGroupAccounting != nil) != tt.wantCGroup {
				t.Errorf("cgroup accounting present = %v, want %v", s.CGroupAccounting != nil, tt.wantCGroup)
			}
		})
	}
}

func TestCollect_PeerWellKnownNames(t *testing.T) {
	s, err := NewCollector(newFakeBus(), Config{PeerStats: true}, nil, discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.PeerAccounting) != 3 {
		t.Fatalf("got %d peers, want 3", len(s.PeerAccounting))
	}
	p := s.PeerAccounting[":1.1"]
	if p.WellKnownName == nil || *p.WellKnownName != "org.freedesktop.systemd1" {
		t.Errorf(":1.1 well-known name = %v", p.WellKnownName)
	}
	if s.PeerAccounting[":1.2"].WellKnownName != nil {
		t.Error(":1.2 owns no well-known name")
	}

	cfg := Config{PeerStats: true, PeerWellKnownNamesOnly: true}
	s, err = NewCollector(newFakeBus(), cfg, nil, discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.PeerAccounting) != 1 {
		t.Errorf("well-known only: got %d peers, want 1: %+v", len(s.PeerAccounting), s.PeerAccounting)
	}
}

func TestCollect_CGroupAccounting(t *testing.T) {
	cg := fakeCGroups{
		100: "/system.slice/systemd.service",
		200: "/system.slice/systemd.service",
	}
	s, err := NewCollector(newFakeBus(), Config{CGroupStats: true}, cg, discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.CGroupAccounting) != 1 {
		t.Fatalf("got %d cgroups, want 1 (pid 300 unresolvable): %+v", len(s.CGroupAccounting), s.CGroupAccounting)
	}
	acc := s.CGroupAccounting["system.slice-systemd.service"]
	if acc.Name != "system.slice-systemd.service" {
		t.Errorf("Name = %q", acc.Name)
	}
	if *acc.NameObjects != 3 || *acc.Matches != 10 || *acc.IncomingBytes != 10 {
		t.Errorf("sums = %+v", acc.Counters.Named())
	}
	if acc.MatchBytes != nil {
		t.Error("counter absent on every peer should stay nil")
	}
}

func TestCollect_WellKnownFilterKeepsCGroupSums(t *testing.T) {
	cg := fakeCGroups{
		100: "/system.slice/systemd.service",
		200: "/system.slice/systemd.service",
	}
	cfg := Config{PeerStats: true, CGroupStats: true, PeerWellKnownNamesOnly: true}
	s, err := NewCollector(newFakeBus(), cfg, cg, discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.PeerAccounting) != 1 {
		t.Errorf("got %d peers, want 1: %+v", len(s.PeerAccounting), s.PeerAccounting)
	}
	acc, ok := s.CGroupAccounting["system.slice-systemd.service"]
	if !ok {
		t.Fatalf("cgroup missing: %+v", s.CGroupAccounting)
	}
	if *acc.NameObjects != 3 || *acc.Matches != 10 || *acc.IncomingBytes != 10 {
		t.Errorf("sums = %+v, want totals over unnamed peers too", acc.Counters.Named())
	}
}

func TestCollect_UserAccounting(t *testing.T) {
	c := NewCollector(newFakeBus(), Config{UserStats: true}, nil, discard())
	c.lookupUser = func(uid uint32) string {
		if uid == 0 {
			return "root"
		}
		return "999999"
	}
	s, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	root := s.UserAccounting[0]
	if root.Username != "root" || root.Bytes == nil || root.Bytes.Usage() != 10 {
		t.Errorf("root = %+v", root)
	}
	if s.UserAccounting[999999].Username != "999999" {
		t.Errorf("unresolvable uid should fall back to the number")
	}
}

func TestCollect_Errors(t *testing.T) {
	bus := newFakeBus()
	bus.statsErr = errors.New("access denied")
	if _, err := NewCollector(bus, Config{}, nil, discard()).Collect(context.Background()); err == nil {
		t.Error("GetStats failure should fail the collection")
	}

	bus = newFakeBus()
	bus.listErr = errors.New("bus gone")
	if _, err := NewCollector(bus, Config{PeerStats: true}, nil, discard()).Collect(context.Background()); err == nil {
		t.Error("ListNames failure should fail peer collection")
	}
}

func TestCollect_NonBrokerDaemon(t *testing.T) {
	bus := newFakeBus()
	delete(bus.stats, PeerAccountingKey)
	delete(bus.stats, UserAccountingKey)
	s, err := NewCollector(bus, Config{PeerStats: true, UserStats: true}, nil, discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if s.PeerAccounting != nil || s.UserAccounting != nil {
		t.Error("brokers without accounting keys should leave the sections nil")
	}
}

// =============================================================================
// Cgroups
// =============================================================================

func TestCGroupName(t *testing.T) {
	tests := map[string]string{
		"/system.slice/foo.service\n": "system.slice-foo.service",
		"/":                           "",
		"/user.slice/user-0.slice/x":  "user.slice-user-0.slice-x",
		"init.scope":                  "init.scope",
	}
	for in, want := range tests {
		if got := CGroupName(in); got != want {
			t.Errorf("CGroupName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCounters_Add(t *testing.T) {
	a := Counters{NameObjects: u32(5), Matches: u32(3), IncomingBytes: u32(^uint32(0))}
	b := Counters{NameObjects: u32(2), MatchBytes: u32(4), IncomingBytes: u32(1)}
	a.add(b)

	want := map[string]uint32{
		"name_objects":   7,
		"match_bytes":    4,
		"matches":        3,
		"incoming_bytes": ^uint32(0),
	}
	got := a.Named()
	if len(got) != len(want) {
		t.Fatalf("Named() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d", k, got[k], v)
		}
	}
}

func TestProcCGroups(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "42")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cgroup"), []byte("0::/system.slice/dbus-broker.service\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewProcCGroups(root)
	if err != nil {
		t.Fatalf("NewProcCGroups: %v", err)
	}
	path, err := r.CGroupPath(42)
	if err != nil {
		t.Fatalf("CGroupPath: %v", err)
	}
	if path != "/system.slice/dbus-broker.service" {
		t.Errorf("path = %q", path)
	}
	if _, err := r.CGroupPath(43); err == nil {
		t.Error("missing pid should fail")
	}
}
