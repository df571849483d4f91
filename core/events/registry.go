package events

import (
	"strconv"

	"padipay/core/types"
)

const (
	TypeRegistryRegistered      = "registry.registered"
	TypeRegistryUnregistered    = "registry.unregistered"
	TypeRegistryVerifierUpdated = "registry.verifier_updated"
)

// Unregistration reasons.
const (
	UnregisterReasonRequested = "requested"
	UnregisterReasonRebound   = "rebound"
)

type RegistryRegistered struct {
	Fingerprint [32]byte
	Address     [20]byte
	Timestamp   uint64
}

func (RegistryRegistered) EventType() string { return TypeRegistryRegistered }

func (e RegistryRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeRegistryRegistered,
		Attributes: map[string]string{
			"fingerprint": formatHash(e.Fingerprint),
			"address":     formatAddress(e.Address),
			"timestamp":   formatUint(e.Timestamp),
		},
	}
}

type RegistryUnregistered struct {
	Fingerprint [32]byte
	Address     [20]byte
	Reason      string
	Timestamp   uint64
}

func (RegistryUnregistered) EventType() string { return TypeRegistryUnregistered }

func (e RegistryUnregistered) Event() *types.Event {
	return &types.Event{
		Type: TypeRegistryUnregistered,
		Attributes: map[string]string{
			"fingerprint": formatHash(e.Fingerprint),
			"address":     formatAddress(e.Address),
			"reason":      e.Reason,
			"timestamp":   formatUint(e.Timestamp),
		},
	}
}

type RegistryVerifierUpdated struct {
	Verifier  [20]byte
	Enabled   bool
	Timestamp uint64
}

func (RegistryVerifierUpdated) EventType() string { return TypeRegistryVerifierUpdated }

func (e RegistryVerifierUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeRegistryVerifierUpdated,
		Attributes: map[string]string{
			"verifier":  formatAddress(e.Verifier),
			"enabled":   strconv.FormatBool(e.Enabled),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}
