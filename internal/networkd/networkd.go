// Package networkd reads systemd-networkd's per-link state files.
package networkd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/ini.v1"
)

// DefaultLinkStateDir is where networkd writes one state file per ifindex.
const DefaultLinkStateDir = "/run/systemd/netif/links"

// InterfaceState is one link's parsed state file.
type InterfaceState struct {
	Name              string       `json:"name" yaml:"name"`
	AddressState      AddressState `json:"address_state" yaml:"address_state"`
	AdminState        AdminState   `json:"admin_state" yaml:"admin_state"`
	CarrierState      CarrierState `json:"carrier_state" yaml:"carrier_state"`
	IPv4AddressState  AddressState `json:"ipv4_address_state" yaml:"ipv4_address_state"`
	IPv6AddressState  AddressState `json:"ipv6_address_state" yaml:"ipv6_address_state"`
	OnlineState       OnlineState  `json:"online_state" yaml:"online_state"`
	OperState         OperState    `json:"oper_state" yaml:"oper_state"`
	RequiredForOnline bool         `json:"required_for_online" yaml:"required_for_online"`
	NetworkFile       string       `json:"network_file" yaml:"network_file"`
}

// Stats is every managed link's state.
type Stats struct {
	Interfaces        []InterfaceState `json:"interfaces_state" yaml:"interfaces_state"`
	ManagedInterfaces uint64           `json:"managed_interfaces" yaml:"managed_interfaces"`
}

// NameResolver maps an ifindex to an interface name.
type NameResolver func(index int) (string, error)

// HostNames resolves names in the current network namespace.
func HostNames(index int) (string, error) {
	iface, err := net.InterfaceByIndex(index)
	if err != nil {
		return "", err
	}
	return iface.Name, nil
}

// ParseState parses one link state file body. Unknown keys are ignored and
// unrecognised enum values map to unknown.
func ParseState(data []byte) (InterfaceState, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return InterfaceState{}, err
	}
	sec := f.Section(ini.DefaultSection)
	get := func(key string) string { return sec.Key(key).String() }

	return InterfaceState{
		AddressState:      AddressState(lookup(addressStates, get("ADDRESS_STATE"))),
		AdminState:        AdminState(lookup(adminStates, get("ADMIN_STATE"))),
		CarrierState:      CarrierState(lookup(carrierStates, get("CARRIER_STATE"))),
		IPv4AddressState:  AddressState(lookup(addressStates, get("IPV4_ADDRESS_STATE"))),
		IPv6AddressState:  AddressState(lookup(addressStates, get("IPV6_ADDRESS_STATE"))),
		OnlineState:       OnlineState(lookup(onlineStates, get("ONLINE_STATE"))),
		OperState:         OperState(lookup(operStates, get("OPER_STATE"))),
		RequiredForOnline: parseBool(get("REQUIRED_FOR_ONLINE")),
		NetworkFile:       get("NETWORK_FILE"),
	}, nil
}

// Collect parses every file in dir. Files are named by ifindex; when
// resolve is nil or fails the file name is used as the interface name.
// Unreadable files are logged and skipped.
func Collect(dir string, resolve NameResolver, logger *slog.Logger) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read link state dir: %w", err)
	}

	stats := &Stats{Interfaces: []InterfaceState{}}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warn("networkd_state_unreadable", "file", e.Name(), "error", err)
			continue
		}
		st, err := ParseState(data)
		if err != nil {
			logger.Warn("networkd_state_unparsable", "file", e.Name(), "error", err)
			continue
		}
		st.Name = interfaceName(e.Name(), resolve)
		stats.Interfaces = append(stats.Interfaces, st)
	}
	sort.Slice(stats.Interfaces, func(i, j int) bool {
		return stats.Interfaces[i].Name < stats.Interfaces[j].Name
	})
	stats.ManagedInterfaces = uint64(len(stats.Interfaces))
	return stats, nil
}

func interfaceName(file string, resolve NameResolver) string {
	if resolve == nil {
		return file
	}
	index, err := strconv.Atoi(file)
	if err != nil {
		return file
	}
	name, err := resolve(index)
	if err != nil || name == "" {
		return file
	}
	return name
}
