// Package systemd adapts the go-systemd D-Bus client to the small manager
// surface the collectors need, and provides typed reads of the property
// maps it returns.
package systemd

import (
	"context"
	"fmt"
	"strconv"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
)

// UnitStatus is re-exported so collectors and their fakes do not import
// go-systemd directly.
type UnitStatus = sddbus.UnitStatus

// Manager is the subset of org.freedesktop.systemd1.Manager used by the
// unit, service, timer, boot, system and verify collectors.
type Manager interface {
	ListUnitsContext(ctx context.Context) ([]UnitStatus, error)
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)
	GetUnitTypePropertiesContext(ctx context.Context, unit, unitType string) (map[string]interface{}, error)
	ManagerProperty(ctx context.Context, name string) (string, error)
}

// Conn wraps a go-systemd connection to satisfy Manager.
type Conn struct {
	*sddbus.Conn
}

// ManagerProperty reads a string-typed manager property such as Version
// or SystemState.
//
// go-systemd returns the property's variant rendered as D-Bus text, so
// strings arrive quoted; they are unquoted here.
func (c Conn) ManagerProperty(_ context.Context, name string) (string, error) {
	raw, err := c.Conn.GetManagerProperty(name)
	if err != nil {
		return "", fmt.Errorf("get manager property %s: %w", name, err)
	}
	if s, err := strconv.Unquote(raw); err == nil {
		return s, nil
	}
	return raw, nil
}
