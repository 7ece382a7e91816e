// Package system reads the systemd manager's overall state and version.
package system

import (
	"context"
	"fmt"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
)

// State is the manager's SystemState property. Values are stable and
// serialize as integers.
type State uint8

const (
	StateUnknown State = iota
	StateInitializing
	StateStarting
	StateRunning
	StateDegraded
	StateMaintenance
	StateStopping
	StateOffline
)

var stateNames = [...]string{
	StateUnknown:      "unknown",
	StateInitializing: "initializing",
	StateStarting:     "starting",
	StateRunning:      "running",
	StateDegraded:     "degraded",
	StateMaintenance:  "maintenance",
	StateStopping:     "stopping",
	StateOffline:      "offline",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ParseState maps a SystemState string to a State. Unrecognised strings
// map to StateUnknown.
func ParseState(s string) State {
	for i, name := range stateNames {
		if name == s {
			return State(i)
		}
	}
	return StateUnknown
}

// CollectState reads SystemState from the manager.
func CollectState(ctx context.Context, mgr systemd.Manager) (State, error) {
	raw, err := mgr.ManagerProperty(ctx, "SystemState")
	if err != nil {
		return StateUnknown, err
	}
	return ParseState(raw), nil
}
