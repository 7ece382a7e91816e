package collector

import (
	"context"
	"fmt"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"

	"github.com/randomizedcoder/go-monitord/internal/dbusstats"
	"github.com/randomizedcoder/go-monitord/internal/systemd"
)

// Session is an open connection to one target's system bus.
type Session interface {
	Manager() systemd.Manager
	Broker() dbusstats.BusCaller
	Close() error
}

// Connector opens sessions. Connection failures exclude the target for
// the cycle.
type Connector interface {
	Connect(ctx context.Context, address string) (Session, error)
}

// DBusConnector dials bus addresses with godbus and wraps them for
// go-systemd.
type DBusConnector struct{}

// Connect opens a private, authenticated connection to address. go-systemd
// asks for a second connection for signals, so dial runs twice.
func (DBusConnector) Connect(ctx context.Context, address string) (Session, error) {
	var raw *dbus.Conn
	dial := func() (*dbus.Conn, error) {
		conn, err := dbus.Connect(address, dbus.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			raw = conn
		}
		return conn, nil
	}

	sd, err := sddbus.NewConnection(dial)
	if err != nil {
		if raw != nil {
			raw.Close()
		}
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}
	return &dbusSession{sd: sd, bus: raw}, nil
}

type dbusSession struct {
	sd  *sddbus.Conn
	bus *dbus.Conn
}

func (s *dbusSession) Manager() systemd.Manager { return systemd.Conn{Conn: s.sd} }

func (s *dbusSession) Broker() dbusstats.BusCaller { return dbusstats.NewBus(s.bus) }

// Close closes both go-systemd connections, including the one the broker
// calls share.
func (s *dbusSession) Close() error {
	s.sd.Close()
	return nil
}
