package events

import (
	"math/big"

	"padipay/core/types"
)

const (
	TypeEscrowDeposited      = "escrow.deposited"
	TypeEscrowClaimed        = "escrow.claimed"
	TypeEscrowAssetSupported = "escrow.asset_supported"
	TypeEscrowAssetRemoved   = "escrow.asset_removed"
)

type EscrowDeposited struct {
	Fingerprint [32]byte
	Asset       string
	Amount      *big.Int
	Balance     *big.Int
	Timestamp   uint64
}

func (EscrowDeposited) EventType() string { return TypeEscrowDeposited }

func (e EscrowDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeEscrowDeposited,
		Attributes: map[string]string{
			"fingerprint": formatHash(e.Fingerprint),
			"asset":       normalizeAsset(e.Asset),
			"amount":      formatAmount(e.Amount),
			"balance":     formatAmount(e.Balance),
			"timestamp":   formatUint(e.Timestamp),
		},
	}
}

type EscrowClaimed struct {
	Fingerprint [32]byte
	Claimant    [20]byte
	Asset       string
	Amount      *big.Int
	Timestamp   uint64
}

func (EscrowClaimed) EventType() string { return TypeEscrowClaimed }

func (e EscrowClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeEscrowClaimed,
		Attributes: map[string]string{
			"fingerprint": formatHash(e.Fingerprint),
			"claimant":    formatAddress(e.Claimant),
			"asset":       normalizeAsset(e.Asset),
			"amount":      formatAmount(e.Amount),
			"timestamp":   formatUint(e.Timestamp),
		},
	}
}

// EscrowAssetChanged reports an asset being added to or removed from the
// supported set.
type EscrowAssetChanged struct {
	Asset     string
	Supported bool
	Timestamp uint64
}

func (e EscrowAssetChanged) EventType() string {
	if e.Supported {
		return TypeEscrowAssetSupported
	}
	return TypeEscrowAssetRemoved
}

func (e EscrowAssetChanged) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"asset":     normalizeAsset(e.Asset),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}
