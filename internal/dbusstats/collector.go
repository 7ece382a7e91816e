package dbusstats

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/randomizedcoder/go-monitord/internal/wire"
)

const (
	busName       = "org.freedesktop.DBus"
	busPath       = dbus.ObjectPath("/org/freedesktop/DBus")
	getStatsCall  = "org.freedesktop.DBus.Debug.Stats.GetStats"
	listNamesCall = "org.freedesktop.DBus.ListNames"
	nameOwnerCall = "org.freedesktop.DBus.GetNameOwner"
)

// BusCaller is the part of the bus driver API the collector needs.
type BusCaller interface {
	GetStats(ctx context.Context) (map[string]dbus.Variant, error)
	ListNames(ctx context.Context) ([]string, error)
	GetNameOwner(ctx context.Context, name string) (string, error)
}

// Bus calls the bus driver over a godbus connection.
type Bus struct {
	obj dbus.BusObject
}

// NewBus returns a BusCaller for conn.
func NewBus(conn *dbus.Conn) *Bus {
	return &Bus{obj: conn.Object(busName, busPath)}
}

func (b *Bus) GetStats(ctx context.Context) (map[string]dbus.Variant, error) {
	var stats map[string]dbus.Variant
	if err := b.obj.CallWithContext(ctx, getStatsCall, 0).Store(&stats); err != nil {
		return nil, fmt.Errorf("GetStats: %w", err)
	}
	return stats, nil
}

func (b *Bus) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := b.obj.CallWithContext(ctx, listNamesCall, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("ListNames: %w", err)
	}
	return names, nil
}

func (b *Bus) GetNameOwner(ctx context.Context, name string) (string, error) {
	var owner string
	if err := b.obj.CallWithContext(ctx, nameOwnerCall, 0, name).Store(&owner); err != nil {
		return "", fmt.Errorf("GetNameOwner %s: %w", name, err)
	}
	return owner, nil
}

// Config selects the optional accounting sections.
type Config struct {
	UserStats              bool
	PeerStats              bool
	PeerWellKnownNamesOnly bool
	CGroupStats            bool
}

// Collector reads broker statistics for one target.
type Collector struct {
	bus        BusCaller
	cfg        Config
	cgroups    CGroupResolver
	lookupUser func(uid uint32) string
	logger     *slog.Logger
}

// NewCollector returns a Collector. cgroups may be nil when CGroupStats is
// off.
func NewCollector(bus BusCaller, cfg Config, cgroups CGroupResolver, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		bus:        bus,
		cfg:        cfg,
		cgroups:    cgroups,
		lookupUser: lookupUsername,
		logger:     logger,
	}
}

// Collect calls GetStats and decodes the enabled sections. Only bus call
// failures are errors; anything the broker omits or shapes differently is
// left unset.
func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	raw, err := c.bus.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	s := &Stats{
		Serial:                      scalar(raw, "Serial"),
		ActiveConnections:           scalar(raw, "ActiveConnections"),
		IncompleteConnections:       scalar(raw, "IncompleteConnections"),
		BusNames:                    scalar(raw, "BusNames"),
		PeakBusNames:                scalar(raw, "PeakBusNames"),
		PeakBusNamesPerConnection:   scalar(raw, "PeakBusNamesPerConnection"),
		MatchRules:                  scalar(raw, "MatchRules"),
		PeakMatchRules:              scalar(raw, "PeakMatchRules"),
		PeakMatchRulesPerConnection: scalar(raw, "PeakMatchRulesPerConnection"),
	}

	// Cgroup accounting is derived from peers, so peers are decoded when
	// either section is wanted.
	if c.cfg.PeerStats || c.cfg.CGroupStats {
		if err := c.collectPeers(ctx, raw, s); err != nil {
			return nil, err
		}
	}

	if c.cfg.UserStats {
		if v, ok := raw[UserAccountingKey]; ok {
			users, ok := DecodeUserAccounting(wire.FromDBus(v))
			if !ok {
				c.logger.Warn("dbus_user_accounting_malformed", "value", wire.FromDBus(v).Kind().String())
			}
			for uid, u := range users {
				u.Username = c.lookupUser(uid)
				users[uid] = u
			}
			s.UserAccounting = users
		}
	}

	return s, nil
}

func (c *Collector) collectPeers(ctx context.Context, raw map[string]dbus.Variant, s *Stats) error {
	v, ok := raw[PeerAccountingKey]
	if !ok {
		return nil
	}
	peers, ok := DecodePeerAccounting(wire.FromDBus(v))
	if !ok {
		c.logger.Warn("dbus_peer_accounting_malformed", "value", wire.FromDBus(v).Kind().String())
		return nil
	}

	owners, err := c.wellKnownNames(ctx)
	if err != nil {
		return err
	}
	for id, peer := range peers {
		if name, ok := owners[id]; ok {
			peer.WellKnownName = &name
			peers[id] = peer
		}
	}

	// Cgroup sums cover every peer; the well-known name filter narrows
	// only the per-peer section.
	if c.cfg.CGroupStats && c.cgroups != nil {
		s.CGroupAccounting = GroupByCGroup(peers, c.cgroups, c.logger)
	}
	if c.cfg.PeerStats {
		if c.cfg.PeerWellKnownNamesOnly {
			for id, peer := range peers {
				if peer.WellKnownName == nil {
					delete(peers, id)
				}
			}
		}
		s.PeerAccounting = peers
	}
	return nil
}

// wellKnownNames maps unique connection names to the well-known name they
// own. A name released between ListNames and GetNameOwner is skipped.
func (c *Collector) wellKnownNames(ctx context.Context) (map[string]string, error) {
	names, err := c.bus.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	owners := make(map[string]string)
	for _, name := range names {
		if strings.HasPrefix(name, ":") {
			continue
		}
		owner, err := c.bus.GetNameOwner(ctx, name)
		if err != nil {
			c.logger.Debug("dbus_name_owner_failed", "name", name, "error", err)
			continue
		}
		owners[owner] = name
	}
	return owners, nil
}

func scalar(raw map[string]dbus.Variant, key string) *uint32 {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	u, ok := wire.FromDBus(v).StrictUint32()
	if !ok {
		return nil
	}
	return &u
}

func lookupUsername(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	u, err := user.LookupId(id)
	if err != nil {
		return id
	}
	return u.Username
}
