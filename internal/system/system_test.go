package system

import (
	"context"
	"errors"
	"testing"

	"github.com/randomizedcoder/go-monitord/internal/systemd/systemdtest"
)

func rev(r uint32) *uint32 { return &r }

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"969.1.69.fc69", Version{969, "1", rev(69), "fc69"}},
		{"969.1.fc69", Version{969, "1", nil, "fc69"}},
		{"969.6-9.9.hs+fb.el9", Version{969, "6-9", rev(9), "hs+fb.el9"}},
		{"v299.6-9.9.hs+fb.el9", Version{299, "6-9", rev(9), "hs+fb.el9"}},
		{"256.1", Version{256, "1", nil, ""}},
		{"256.1.x.y", Version{256, "1", nil, "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.in, err)
			}
			if got.Major != tt.want.Major || got.Minor != tt.want.Minor || got.OS != tt.want.OS {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if (got.Revision == nil) != (tt.want.Revision == nil) ||
				(got.Revision != nil && *got.Revision != *tt.want.Revision) {
				t.Errorf("revision = %v, want %v", got.Revision, tt.want.Revision)
			}
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, in := range []string{"", "256", "abc.1.fc40", "-1.2.x"} {
		if _, err := ParseVersion(in); !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("ParseVersion(%q) error = %v, want ErrInvalidVersion", in, err)
		}
	}
}

func TestVersion_String(t *testing.T) {
	tests := map[string]string{
		"v969.6-9.9.hs+fb.el9": "969.6-9.9.hs+fb.el9",
		"256.1.fc40":           "256.1.fc40",
	}
	for in, want := range tests {
		v, err := ParseVersion(in)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", in, err)
		}
		if got := v.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestParseState(t *testing.T) {
	for i, name := range stateNames {
		if got := ParseState(name); got != State(i) {
			t.Errorf("ParseState(%q) = %v, want %v", name, got, State(i))
		}
	}
	if got := ParseState("booting"); got != StateUnknown {
		t.Errorf("ParseState(booting) = %v, want unknown", got)
	}
	if StateOffline != 7 {
		t.Errorf("StateOffline = %d, want 7", StateOffline)
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestCollect(t *testing.T) {
	mgr := &systemdtest.Manager{ManagerProps: map[string]string{
		"SystemState": "degraded",
		"Version":     "257.3.fc42",
	}}

	state, err := CollectState(context.Background(), mgr)
	if err != nil || state != StateDegraded {
		t.Errorf("CollectState = (%v, %v), want degraded", state, err)
	}
	v, err := CollectVersion(context.Background(), mgr)
	if err != nil || v.Major != 257 || v.Minor != "3" || v.OS != "fc42" {
		t.Errorf("CollectVersion = (%+v, %v)", v, err)
	}

	empty := &systemdtest.Manager{}
	if _, err := CollectState(context.Background(), empty); err == nil {
		t.Error("missing SystemState should fail")
	}
	if v, err := CollectVersion(context.Background(), empty); err == nil || v != nil {
		t.Error("missing Version should fail")
	}
}
