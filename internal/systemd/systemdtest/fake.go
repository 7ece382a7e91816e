// Package systemdtest provides an in-memory systemd.Manager for tests.
package systemdtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
)

// Manager is a fake systemd.Manager. Unit properties are keyed by unit
// name; type properties by unit name then type ("Service", "Timer").
type Manager struct {
	Units        []systemd.UnitStatus
	UnitProps    map[string]map[string]interface{}
	TypeProps    map[string]map[string]map[string]interface{}
	ManagerProps map[string]string

	ListErr error

	mu    sync.Mutex
	calls map[string]int
}

func (m *Manager) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times a method was called.
func (m *Manager) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *Manager) ListUnitsContext(_ context.Context) ([]systemd.UnitStatus, error) {
	m.record("ListUnits")
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Units, nil
}

func (m *Manager) GetUnitPropertiesContext(_ context.Context, unit string) (map[string]interface{}, error) {
	m.record("GetUnitProperties")
	props, ok := m.UnitProps[unit]
	if !ok {
		return nil, fmt.Errorf("unit %s not found", unit)
	}
	return props, nil
}

func (m *Manager) GetUnitTypePropertiesContext(_ context.Context, unit, unitType string) (map[string]interface{}, error) {
	m.record("GetUnitTypeProperties")
	props, ok := m.TypeProps[unit][unitType]
	if !ok {
		return nil, fmt.Errorf("unit %s has no %s properties", unit, unitType)
	}
	return props, nil
}

func (m *Manager) ManagerProperty(_ context.Context, name string) (string, error) {
	m.record("ManagerProperty")
	v, ok := m.ManagerProps[name]
	if !ok {
		return "", fmt.Errorf("no manager property %s", name)
	}
	return v, nil
}

// Unit is a shorthand for building a ListUnits row.
func Unit(name, load, active string, jobID uint32) systemd.UnitStatus {
	return systemd.UnitStatus{
		Name:        name,
		LoadState:   load,
		ActiveState: active,
		SubState:    "",
		JobId:       jobID,
	}
}
