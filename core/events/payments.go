package events

import (
	"math/big"
	"strconv"

	"padipay/core/types"
)

const (
	TypePaymentSent             = "payments.sent"
	TypePaymentFeePolicyUpdated = "payments.fee_policy_updated"
	TypePaymentsPaused          = "payments.paused"
	TypePaymentsUnpaused        = "payments.unpaused"
)

// PaymentSent carries every field of the stored payment record.
type PaymentSent struct {
	ID                   uint64
	Sender               [20]byte
	RecipientFingerprint [32]byte
	Recipient            [20]byte
	GrossAmount          *big.Int
	FeeAmount            *big.Int
	NetAmount            *big.Int
	Asset                string
	Memo                 string
	Timestamp            uint64
	IsEscrowed           bool
	Claimed              bool
}

func (PaymentSent) EventType() string { return TypePaymentSent }

func (e PaymentSent) Event() *types.Event {
	attrs := map[string]string{
		"id":                   formatUint(e.ID),
		"sender":               formatAddress(e.Sender),
		"recipientFingerprint": formatHash(e.RecipientFingerprint),
		"grossAmount":          formatAmount(e.GrossAmount),
		"feeAmount":            formatAmount(e.FeeAmount),
		"netAmount":            formatAmount(e.NetAmount),
		"asset":                normalizeAsset(e.Asset),
		"memo":                 e.Memo,
		"timestamp":            formatUint(e.Timestamp),
		"isEscrowed":           strconv.FormatBool(e.IsEscrowed),
		"claimed":              strconv.FormatBool(e.Claimed),
	}
	if !e.IsEscrowed {
		attrs["recipient"] = formatAddress(e.Recipient)
	}
	return &types.Event{Type: TypePaymentSent, Attributes: attrs}
}

type PaymentFeePolicyUpdated struct {
	FeeBasisPoints   uint32
	MinimumFee       *big.Int
	MinPaymentAmount *big.Int
	MaxPaymentAmount *big.Int
	FeeRecipient     [20]byte
	Timestamp        uint64
}

func (PaymentFeePolicyUpdated) EventType() string { return TypePaymentFeePolicyUpdated }

func (e PaymentFeePolicyUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePaymentFeePolicyUpdated,
		Attributes: map[string]string{
			"feeBasisPoints":   formatUint(uint64(e.FeeBasisPoints)),
			"minimumFee":       formatAmount(e.MinimumFee),
			"minPaymentAmount": formatAmount(e.MinPaymentAmount),
			"maxPaymentAmount": formatAmount(e.MaxPaymentAmount),
			"feeRecipient":     formatAddress(e.FeeRecipient),
			"timestamp":        formatUint(e.Timestamp),
		},
	}
}

type PaymentsPauseChanged struct {
	Paused    bool
	By        [20]byte
	Timestamp uint64
}

func (e PaymentsPauseChanged) EventType() string {
	if e.Paused {
		return TypePaymentsPaused
	}
	return TypePaymentsUnpaused
}

func (e PaymentsPauseChanged) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"by":        formatAddress(e.By),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}
