package fees

import (
	"errors"
	"fmt"
	"math/big"

	coreerr "padipay/core/errors"
	"padipay/native/common"
)

// MaxBasisPoints is 100% expressed in basis points.
const MaxBasisPoints = 10_000

var (
	ErrBasisPointsRange   = errors.New("fee basis points must be within [0, 10000]")
	ErrPaymentBoundsOrder = errors.New("minimum payment amount exceeds maximum")
	ErrZeroMaxPayment     = errors.New("maximum payment amount must be positive")
	ErrZeroFeeRecipient   = errors.New("fee recipient must not be the zero address")
	ErrBelowMinimum       = errors.New("gross amount below minimum payment")
	ErrAboveMaximum       = errors.New("gross amount above maximum payment")
	ErrFeeExceedsGross    = errors.New("gross amount does not exceed the fee")
)

// Policy is the fee and bounds configuration applied to every payment.
type Policy struct {
	FeeBasisPoints   uint32
	MinimumFee       *big.Int
	MinPaymentAmount *big.Int
	MaxPaymentAmount *big.Int
	FeeRecipient     [20]byte
}

// Quote is the outcome of applying a policy to a gross amount.
type Quote struct {
	Gross *big.Int
	Fee   *big.Int
	Net   *big.Int
}

// Clone returns a deep copy of the policy.
func (p Policy) Clone() Policy {
	return Policy{
		FeeBasisPoints:   p.FeeBasisPoints,
		MinimumFee:       common.Copy(p.MinimumFee),
		MinPaymentAmount: common.Copy(p.MinPaymentAmount),
		MaxPaymentAmount: common.Copy(p.MaxPaymentAmount),
		FeeRecipient:     p.FeeRecipient,
	}
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	const op = "fees.validate"
	if p.FeeBasisPoints > MaxBasisPoints {
		return coreerr.Invalid(op, ErrBasisPointsRange)
	}
	for name, v := range map[string]*big.Int{
		"minimum fee":            p.MinimumFee,
		"minimum payment amount": p.MinPaymentAmount,
		"maximum payment amount": p.MaxPaymentAmount,
	} {
		if err := common.CheckAmount(v); err != nil {
			return coreerr.Wrapf(coreerr.KindInvalidInput, op, err, "%s", name)
		}
	}
	if p.MaxPaymentAmount.Sign() == 0 {
		return coreerr.Invalid(op, ErrZeroMaxPayment)
	}
	if p.MinPaymentAmount.Cmp(p.MaxPaymentAmount) > 0 {
		return coreerr.Invalid(op, ErrPaymentBoundsOrder)
	}
	if common.IsZeroAddress(p.FeeRecipient) {
		return coreerr.Invalid(op, ErrZeroFeeRecipient)
	}
	return nil
}

// Compute applies the policy to gross:
//
//	fee = max(floor(gross * bps / 10000), minimumFee)
//	net = gross - fee
//
// The percentage fee rounds down and the minimum fee wins whenever it is
// larger. Gross amounts outside [min, max] or not strictly greater than the
// fee are rejected with a bounds violation.
func Compute(p Policy, gross *big.Int) (Quote, error) {
	const op = "fees.compute"
	if gross == nil {
		return Quote{}, coreerr.Invalid(op, common.ErrNilAmount)
	}
	// Bounds come first so a zero or negative gross under a positive
	// minimum reports a bounds violation.
	if p.MinPaymentAmount != nil && gross.Cmp(p.MinPaymentAmount) < 0 {
		return Quote{}, coreerr.Wrapf(coreerr.KindBoundsViolation, op, ErrBelowMinimum, "gross %s < %s", gross, p.MinPaymentAmount)
	}
	if p.MaxPaymentAmount != nil && gross.Cmp(p.MaxPaymentAmount) > 0 {
		return Quote{}, coreerr.Wrapf(coreerr.KindBoundsViolation, op, ErrAboveMaximum, "gross %s > %s", gross, p.MaxPaymentAmount)
	}
	if err := common.CheckPositive(gross); err != nil {
		return Quote{}, coreerr.Invalid(op, err)
	}
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(uint64(p.FeeBasisPoints)))
	fee.Quo(fee, big.NewInt(MaxBasisPoints))
	if p.MinimumFee != nil && fee.Cmp(p.MinimumFee) < 0 {
		fee.Set(p.MinimumFee)
	}
	if gross.Cmp(fee) <= 0 {
		return Quote{}, coreerr.Wrapf(coreerr.KindBoundsViolation, op, ErrFeeExceedsGross, "gross %s, fee %s", gross, fee)
	}
	return Quote{
		Gross: new(big.Int).Set(gross),
		Fee:   fee,
		Net:   new(big.Int).Sub(gross, fee),
	}, nil
}

func (q Quote) String() string {
	return fmt.Sprintf("gross=%s fee=%s net=%s", q.Gross, q.Fee, q.Net)
}
