package system

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
)

// ErrInvalidVersion is returned when a version string has no numeric
// major component or no minor component.
var ErrInvalidVersion = errors.New("invalid systemd version")

// Version is a parsed manager Version property, e.g. "256.1.fc40" or
// "255.6-9.9.hs+fb.el9".
type Version struct {
	Major    uint32  `json:"major" yaml:"major"`
	Minor    string  `json:"minor" yaml:"minor"`
	Revision *uint32 `json:"revision" yaml:"revision"`
	OS       string  `json:"os" yaml:"os"`
}

// ParseVersion parses "[v]major.minor[.revision].os". The revision is only
// read when there are more than three dot-separated parts; a non-numeric
// revision is dropped. Everything after it is the os suffix.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("%w: %q has no minor version", ErrInvalidVersion, s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("%w: major version of %q: %v", ErrInvalidVersion, s, err)
	}

	v := Version{Major: uint32(major), Minor: parts[1]}
	rest := parts[2:]
	if len(parts) > 3 {
		if rev, err := strconv.ParseUint(rest[0], 10, 32); err == nil {
			r := uint32(rev)
			v.Revision = &r
		}
		rest = rest[1:]
	}
	v.OS = strings.Join(rest, ".")
	return v, nil
}

func (v Version) String() string {
	if v.Revision != nil {
		return fmt.Sprintf("%d.%s.%d.%s", v.Major, v.Minor, *v.Revision, v.OS)
	}
	return fmt.Sprintf("%d.%s.%s", v.Major, v.Minor, v.OS)
}

// CollectVersion reads and parses the manager's Version property.
func CollectVersion(ctx context.Context, mgr systemd.Manager) (*Version, error) {
	raw, err := mgr.ManagerProperty(ctx, "Version")
	if err != nil {
		return nil, err
	}
	v, err := ParseVersion(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
