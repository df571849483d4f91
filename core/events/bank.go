package events

import (
	"math/big"

	"padipay/core/types"
)

const (
	TypeBankAssetRegistered = "bank.asset_registered"
	TypeBankMint            = "bank.mint"
	TypeBankTransfer        = "bank.transfer"
	TypeBankApproval        = "bank.approval"
)

type BankAssetRegistered struct {
	Symbol    string
	Name      string
	Decimals  uint8
	Timestamp uint64
}

func (BankAssetRegistered) EventType() string { return TypeBankAssetRegistered }

func (e BankAssetRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeBankAssetRegistered,
		Attributes: map[string]string{
			"asset":     normalizeAsset(e.Symbol),
			"name":      e.Name,
			"decimals":  formatUint(uint64(e.Decimals)),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}

type BankMint struct {
	Asset     string
	To        [20]byte
	Amount    *big.Int
	Timestamp uint64
}

func (BankMint) EventType() string { return TypeBankMint }

func (e BankMint) Event() *types.Event {
	return &types.Event{
		Type: TypeBankMint,
		Attributes: map[string]string{
			"asset":     normalizeAsset(e.Asset),
			"to":        formatAddress(e.To),
			"amount":    formatAmount(e.Amount),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}

// BankTransfer records a balance movement between two addresses, including
// module accounts.
type BankTransfer struct {
	Asset     string
	From      [20]byte
	To        [20]byte
	Amount    *big.Int
	Timestamp uint64
}

func (BankTransfer) EventType() string { return TypeBankTransfer }

func (e BankTransfer) Event() *types.Event {
	return &types.Event{
		Type: TypeBankTransfer,
		Attributes: map[string]string{
			"asset":     normalizeAsset(e.Asset),
			"from":      formatAddress(e.From),
			"to":        formatAddress(e.To),
			"amount":    formatAmount(e.Amount),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}

type BankApproval struct {
	Asset     string
	Owner     [20]byte
	Spender   [20]byte
	Amount    *big.Int
	Timestamp uint64
}

func (BankApproval) EventType() string { return TypeBankApproval }

func (e BankApproval) Event() *types.Event {
	return &types.Event{
		Type: TypeBankApproval,
		Attributes: map[string]string{
			"asset":     normalizeAsset(e.Asset),
			"owner":     formatAddress(e.Owner),
			"spender":   formatAddress(e.Spender),
			"amount":    formatAmount(e.Amount),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}
