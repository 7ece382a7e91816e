package machines

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/machine1"
	"github.com/godbus/dbus/v5"
)

const (
	machinedService  = "org.freedesktop.machine1"
	machinedPath     = dbus.ObjectPath("/org/freedesktop/machine1")
	managerInterface = "org.freedesktop.machine1.Manager"
	machineInterface = "org.freedesktop.machine1.Machine"
	propertiesGetAll = "org.freedesktop.DBus.Properties.GetAll"
)

// connect opens an authenticated bus connection. Tests replace it.
var connect = func(address string) (*dbus.Conn, error) {
	return dbus.Connect(address)
}

// Conn talks to machined over one bus connection.
type Conn struct {
	conn    *dbus.Conn
	manager dbus.BusObject
}

// Dial connects to machined on the bus at address.
func Dial(address string) (*Conn, error) {
	conn, err := connect(address)
	if err != nil {
		return nil, fmt.Errorf("connect to machined at %s: %w", address, err)
	}
	return &Conn{conn: conn, manager: conn.Object(machinedService, machinedPath)}, nil
}

// Close closes the bus connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// ListMachines returns every machine registered with machined.
func (c *Conn) ListMachines() ([]machine1.MachineStatus, error) {
	var out []machine1.MachineStatus
	if err := c.manager.Call(managerInterface+".ListMachines", 0).Store(&out); err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return out, nil
}

// DescribeMachine returns the properties of the named machine.
func (c *Conn) DescribeMachine(name string) (map[string]interface{}, error) {
	var path dbus.ObjectPath
	if err := c.manager.Call(managerInterface+".GetMachine", 0, name).Store(&path); err != nil {
		return nil, fmt.Errorf("get machine %s: %w", name, err)
	}

	var props map[string]dbus.Variant
	if err := c.conn.Object(machinedService, path).Call(propertiesGetAll, 0, machineInterface).Store(&props); err != nil {
		return nil, fmt.Errorf("describe machine %s: %w", name, err)
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v.Value()
	}
	return out, nil
}
