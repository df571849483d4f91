package payments

import (
	"errors"
	"math/big"

	"padipay/native/common"
)

// MaxMemoLength bounds the memo attached to a payment, in bytes.
const MaxMemoLength = 256

var (
	ErrUnsupportedAsset  = errors.New("asset not supported")
	ErrMemoTooLong       = errors.New("memo exceeds 256 bytes")
	ErrZeroFingerprint   = errors.New("recipient fingerprint must not be zero")
	ErrInsufficientBal   = errors.New("sender balance below gross amount")
	ErrInsufficientAllow = errors.New("payment module allowance below gross amount")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrNotOwner          = errors.New("caller is not the payments owner")
	ErrPolicyNotSet      = errors.New("fee policy not configured")
	ErrAlreadyPaused     = errors.New("payments already paused")
	ErrNotPaused         = errors.New("payments not paused")
)

// Record is the immutable receipt of a payment. Only Claimed changes after
// creation, and only from false to true.
type Record struct {
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

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.GrossAmount = common.Copy(r.GrossAmount)
	clone.FeeAmount = common.Copy(r.FeeAmount)
	clone.NetAmount = common.Copy(r.NetAmount)
	return &clone
}

// Stats aggregates platform-wide payment counters. Every field only grows.
type Stats struct {
	TotalSent    uint64
	TotalClaimed uint64
	TotalVolume  *big.Int
	TotalFees    *big.Int
}

// Clone returns a deep copy of the stats.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return &Stats{TotalVolume: big.NewInt(0), TotalFees: big.NewInt(0)}
	}
	return &Stats{
		TotalSent:    s.TotalSent,
		TotalClaimed: s.TotalClaimed,
		TotalVolume:  common.Copy(s.TotalVolume),
		TotalFees:    common.Copy(s.TotalFees),
	}
}
