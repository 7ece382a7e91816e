package networkd

import "strings"

// The enums below serialize as their integer values. Zero is always
// unknown, which is also what an unrecognised string maps to.

type AddressState uint8

const (
	AddressUnknown AddressState = iota
	AddressOff
	AddressNoAddress
	AddressDegraded
	AddressRoutable
)

var addressStates = []string{"unknown", "off", "no-address", "degraded", "routable"}

type AdminState uint8

const (
	AdminUnknown AdminState = iota
	AdminPending
	AdminFailed
	AdminConfiguring
	AdminConfigured
	AdminUnmanaged
	AdminLinger
	AdminInitialized
)

var adminStates = []string{"unknown", "pending", "failed", "configuring", "configured", "unmanaged", "linger", "initialized"}

type CarrierState uint8

const (
	CarrierUnknown CarrierState = iota
	CarrierOff
	CarrierNoCarrier
	CarrierDormant
	CarrierDegradedCarrier
	CarrierCarrier
	CarrierEnslaved
)

var carrierStates = []string{"unknown", "off", "no-carrier", "dormant", "degraded-carrier", "carrier", "enslaved"}

type OnlineState uint8

const (
	OnlineUnknown OnlineState = iota
	OnlineOffline
	OnlinePartial
	OnlineOnline
)

var onlineStates = []string{"unknown", "offline", "partial", "online"}

type OperState uint8

const (
	OperUnknown OperState = iota
	OperMissing
	OperOff
	OperNoCarrier
	OperDormant
	OperDegradedCarrier
	OperCarrier
	OperDegraded
	OperEnslaved
	OperRoutable
)

var operStates = []string{
	"unknown", "missing", "off", "no-carrier", "dormant",
	"degraded-carrier", "carrier", "degraded", "enslaved", "routable",
}

// lookup returns the index of s in names, accepting '_' for '-'.
func lookup(names []string, s string) uint8 {
	s = strings.ReplaceAll(s, "_", "-")
	for i, n := range names {
		if n == s {
			return uint8(i)
		}
	}
	return 0
}

func name(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "unknown"
}

func (s AddressState) String() string { return name(addressStates, uint8(s)) }
func (s AdminState) String() string   { return name(adminStates, uint8(s)) }
func (s CarrierState) String() string { return name(carrierStates, uint8(s)) }
func (s OnlineState) String() string  { return name(onlineStates, uint8(s)) }
func (s OperState) String() string    { return name(operStates, uint8(s)) }

// parseBool accepts networkd's yes/no spelling.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}
