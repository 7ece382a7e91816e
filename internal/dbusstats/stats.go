// Package dbusstats collects D-Bus broker statistics from
// org.freedesktop.DBus.Debug.Stats.GetStats.
//
// Brokers and broker versions report different key sets, so every field is
// optional. dbus-broker additionally reports per-peer and per-user
// accounting, which is decoded into PeerAccounting and UserAccounting.
package dbusstats

// PeerAccounting is one connection's credentials and resource counters.
type PeerAccounting struct {
	ID            string  `json:"id" yaml:"id"`
	WellKnownName *string `json:"well_known_name,omitempty" yaml:"well_known_name,omitempty"`

	UnixUserID *uint32 `json:"unix_user_id,omitempty" yaml:"unix_user_id,omitempty"`
	ProcessID  *uint32 `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	// UnixGroupIDs is nil when the broker did not report groups and points
	// to an empty slice when it reported none.
	UnixGroupIDs *[]uint32 `json:"unix_group_ids,omitempty" yaml:"unix_group_ids,omitempty"`

	Counters `yaml:",inline"`
}

// Counters are the per-peer resource counters. CGroupAccounting sums them.
type Counters struct {
	NameObjects            *uint32 `json:"name_objects,omitempty" yaml:"name_objects,omitempty"`
	MatchBytes             *uint32 `json:"match_bytes,omitempty" yaml:"match_bytes,omitempty"`
	Matches                *uint32 `json:"matches,omitempty" yaml:"matches,omitempty"`
	ReplyObjects           *uint32 `json:"reply_objects,omitempty" yaml:"reply_objects,omitempty"`
	IncomingBytes          *uint32 `json:"incoming_bytes,omitempty" yaml:"incoming_bytes,omitempty"`
	IncomingFds            *uint32 `json:"incoming_fds,omitempty" yaml:"incoming_fds,omitempty"`
	OutgoingBytes          *uint32 `json:"outgoing_bytes,omitempty" yaml:"outgoing_bytes,omitempty"`
	OutgoingFds            *uint32 `json:"outgoing_fds,omitempty" yaml:"outgoing_fds,omitempty"`
	ActivationRequestBytes *uint32 `json:"activation_request_bytes,omitempty" yaml:"activation_request_bytes,omitempty"`
	ActivationRequestFds   *uint32 `json:"activation_request_fds,omitempty" yaml:"activation_request_fds,omitempty"`
}

// Named returns the counters keyed by their snake_case names, skipping
// the ones the broker did not report.
func (c Counters) Named() map[string]uint32 {
	out := make(map[string]uint32, 10)
	for _, f := range c.fields() {
		if *f.ptr != nil {
			out[f.name] = **f.ptr
		}
	}
	return out
}

type counterField struct {
	name string
	ptr  **uint32
}

func (c *Counters) fields() []counterField {
	return []counterField{
		{"name_objects", &c.NameObjects},
		{"match_bytes", &c.MatchBytes},
		{"matches", &c.Matches},
		{"reply_objects", &c.ReplyObjects},
		{"incoming_bytes", &c.IncomingBytes},
		{"incoming_fds", &c.IncomingFds},
		{"outgoing_bytes", &c.OutgoingBytes},
		{"outgoing_fds", &c.OutgoingFds},
		{"activation_request_bytes", &c.ActivationRequestBytes},
		{"activation_request_fds", &c.ActivationRequestFds},
	}
}

// add sums other into c. A counter absent on both sides stays absent.
// Sums saturate at the uint32 maximum.
func (c *Counters) add(other Counters) {
	dst := c.fields()
	src := other.fields()
	for i := range dst {
		b := *src[i].ptr
		if b == nil {
			continue
		}
		a := *dst[i].ptr
		if a == nil {
			v := *b
			*dst[i].ptr = &v
			continue
		}
		sum := uint64(*a) + uint64(*b)
		if sum > uint64(^uint32(0)) {
			sum = uint64(^uint32(0))
		}
		v := uint32(sum)
		*dst[i].ptr = &v
	}
}

// CGroupAccounting is the sum of peer counters for peers in one cgroup.
// Grouping keeps cardinality bounded on hosts with many short-lived peers.
type CGroupAccounting struct {
	Name string `json:"name" yaml:"name"`
	Counters `yaml:",inline"`
}

// CurMaxPair is a dbus-broker quota. The broker stores the remaining
// quota in Cur, so usage is Max - Cur.
type CurMaxPair struct {
	Cur uint32 `json:"cur" yaml:"cur"`
	Max uint32 `json:"max" yaml:"max"`
}

// Usage returns Max - Cur, or 0 when Cur exceeds Max.
func (p CurMaxPair) Usage() uint32 {
	if p.Cur > p.Max {
		return 0
	}
	return p.Max - p.Cur
}

// UserAccounting is one uid's aggregated quota usage.
type UserAccounting struct {
	UID      uint32      `json:"uid" yaml:"uid"`
	Username string      `json:"username" yaml:"username"`
	Bytes    *CurMaxPair `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Fds      *CurMaxPair `json:"fds,omitempty" yaml:"fds,omitempty"`
	Matches  *CurMaxPair `json:"matches,omitempty" yaml:"matches,omitempty"`
	Objects  *CurMaxPair `json:"objects,omitempty" yaml:"objects,omitempty"`
}

// Stats is the broker-wide statistics snapshot.
type Stats struct {
	Serial                      *uint32 `json:"serial,omitempty" yaml:"serial,omitempty"`
	ActiveConnections           *uint32 `json:"active_connections,omitempty" yaml:"active_connections,omitempty"`
	IncompleteConnections       *uint32 `json:"incomplete_connections,omitempty" yaml:"incomplete_connections,omitempty"`
	BusNames                    *uint32 `json:"bus_names,omitempty" yaml:"bus_names,omitempty"`
	PeakBusNames                *uint32 `json:"peak_bus_names,omitempty" yaml:"peak_bus_names,omitempty"`
	PeakBusNamesPerConnection   *uint32 `json:"peak_bus_names_per_connection,omitempty" yaml:"peak_bus_names_per_connection,omitempty"`
	MatchRules                  *uint32 `json:"match_rules,omitempty" yaml:"match_rules,omitempty"`
	PeakMatchRules              *uint32 `json:"peak_match_rules,omitempty" yaml:"peak_match_rules,omitempty"`
	PeakMatchRulesPerConnection *uint32 `json:"peak_match_rules_per_connection,omitempty" yaml:"peak_match_rules_per_connection,omitempty"`

	PeerAccounting   map[string]PeerAccounting   `json:"peer_accounting,omitempty" yaml:"peer_accounting,omitempty"`
	UserAccounting   map[uint32]UserAccounting   `json:"user_accounting,omitempty" yaml:"user_accounting,omitempty"`
	CGroupAccounting map[string]CGroupAccounting `json:"cgroup_accounting,omitempty" yaml:"cgroup_accounting,omitempty"`
}

// Named returns the broker-wide scalars keyed by their snake_case names,
// skipping the ones the broker did not report.
func (s *Stats) Named() map[string]uint32 {
	out := make(map[string]uint32, 9)
	for name, v := range map[string]*uint32{
		"serial":                          s.Serial,
		"active_connections":              s.ActiveConnections,
		"incomplete_connections":          s.IncompleteConnections,
		"bus_names":                       s.BusNames,
		"peak_bus_names":                  s.PeakBusNames,
		"peak_bus_names_per_connection":   s.PeakBusNamesPerConnection,
		"match_rules":                     s.MatchRules,
		"peak_match_rules":                s.PeakMatchRules,
		"peak_match_rules_per_connection": s.PeakMatchRulesPerConnection,
	} {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}
