package events

import (
	"padipay/core/types"
)

const (
	TypeWalletDeployed      = "wallet.deployed"
	TypeWalletOwnerAssigned = "wallet.owner_assigned"
	TypeWalletOpExecuted    = "wallet.op_executed"
)

type WalletDeployed struct {
	Wallet      [20]byte
	Fingerprint [32]byte
	Owner       [20]byte
	EntryPoint  [20]byte
	Deployer    [20]byte
	Timestamp   uint64
}

func (WalletDeployed) EventType() string { return TypeWalletDeployed }

func (e WalletDeployed) Event() *types.Event {
	return &types.Event{
		Type: TypeWalletDeployed,
		Attributes: map[string]string{
			"wallet":      formatAddress(e.Wallet),
			"fingerprint": formatHash(e.Fingerprint),
			"owner":       formatAddress(e.Owner),
			"entryPoint":  formatAddress(e.EntryPoint),
			"deployer":    formatAddress(e.Deployer),
			"timestamp":   formatUint(e.Timestamp),
		},
	}
}

type WalletOwnerAssigned struct {
	Wallet        [20]byte
	PreviousOwner [20]byte
	Owner         [20]byte
	Timestamp     uint64
}

func (WalletOwnerAssigned) EventType() string { return TypeWalletOwnerAssigned }

func (e WalletOwnerAssigned) Event() *types.Event {
	return &types.Event{
		Type: TypeWalletOwnerAssigned,
		Attributes: map[string]string{
			"wallet":        formatAddress(e.Wallet),
			"previousOwner": formatAddress(e.PreviousOwner),
			"owner":         formatAddress(e.Owner),
			"timestamp":     formatUint(e.Timestamp),
		},
	}
}

type WalletOpExecuted struct {
	Wallet    [20]byte
	OpHash    [32]byte
	Nonce     uint64
	Calls     int
	Sponsor   [20]byte
	Timestamp uint64
}

func (WalletOpExecuted) EventType() string { return TypeWalletOpExecuted }

func (e WalletOpExecuted) Event() *types.Event {
	attrs := map[string]string{
		"wallet":    formatAddress(e.Wallet),
		"opHash":    formatHash(e.OpHash),
		"nonce":     formatUint(e.Nonce),
		"calls":     formatUint(uint64(e.Calls)),
		"timestamp": formatUint(e.Timestamp),
	}
	if e.Sponsor != ([20]byte{}) {
		attrs["sponsor"] = formatAddress(e.Sponsor)
	}
	return &types.Event{Type: TypeWalletOpExecuted, Attributes: attrs}
}
