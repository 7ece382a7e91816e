// Package units tracks systemd unit counts, per-unit states and service
// statistics. It has two independent data paths: a classic enumeration via
// the manager's ListUnits call, and a fold over the metric records published
// on the manager's varlink metrics socket.
package units

import (
	"errors"
	"fmt"
)

// ActiveState is a unit's ActiveState property. Values serialize as integers.
type ActiveState uint8

const (
	ActiveUnknown ActiveState = iota
	ActiveActive
	ActiveReloading
	ActiveInactive
	ActiveFailed
	ActiveActivating
	ActiveDeactivating
)

var activeStateNames = [...]string{
	ActiveUnknown:      "unknown",
	ActiveActive:       "active",
	ActiveReloading:    "reloading",
	ActiveInactive:     "inactive",
	ActiveFailed:       "failed",
	ActiveActivating:   "activating",
	ActiveDeactivating: "deactivating",
}

// LoadState is a unit's LoadState property. Values serialize as integers.
type LoadState uint8

const (
	LoadUnknown LoadState = iota
	LoadLoaded
	LoadError
	LoadMasked
	LoadNotFound
)

var loadStateNames = [...]string{
	LoadUnknown:  "unknown",
	LoadLoaded:   "loaded",
	LoadError:    "error",
	LoadMasked:   "masked",
	LoadNotFound: "not_found",
}

var (
	// ErrUnknownActiveState is returned for strings outside the ActiveState vocabulary.
	ErrUnknownActiveState = errors.New("unrecognized active state")

	// ErrUnknownLoadState is returned for strings outside the LoadState vocabulary.
	ErrUnknownLoadState = errors.New("unrecognized load state")
)

// ParseActiveState converts a state name. Matching is exact and case-sensitive.
func ParseActiveState(s string) (ActiveState, error) {
	for i, name := range activeStateNames {
		if s == name {
			return ActiveState(i), nil
		}
	}
	return ActiveUnknown, fmt.Errorf("%w: %q", ErrUnknownActiveState, s)
}

// ParseLoadState converts a state name. systemd spells the missing-unit
// state "not-found"; both that and "not_found" are accepted.
func ParseLoadState(s string) (LoadState, error) {
	if s == "not-found" {
		return LoadNotFound, nil
	}
	for i, name := range loadStateNames {
		if s == name {
			return LoadState(i), nil
		}
	}
	return LoadUnknown, fmt.Errorf("%w: %q", ErrUnknownLoadState, s)
}

func (s ActiveState) String() string {
	if int(s) < len(activeStateNames) {
		return activeStateNames[s]
	}
	return fmt.Sprintf("ActiveState(%d)", uint8(s))
}

func (s LoadState) String() string {
	if int(s) < len(loadStateNames) {
		return loadStateNames[s]
	}
	return fmt.Sprintf("LoadState(%d)", uint8(s))
}

// AllActiveStates lists every ActiveState in numeric order.
func AllActiveStates() []ActiveState {
	out := make([]ActiveState, len(activeStateNames))
	for i := range out {
		out[i] = ActiveState(i)
	}
	return out
}

// AllLoadStates lists every LoadState in numeric order.
func AllLoadStates() []LoadState {
	out := make([]LoadState, len(loadStateNames))
	for i := range out {
		out[i] = LoadState(i)
	}
	return out
}
