package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrNilAmount      = errors.New("amount must be provided")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrZeroAmount     = errors.New("amount must be positive")
	ErrAmountOverflow = errors.New("amount exceeds 256 bits")
)

// CheckAmount validates that v is a non-negative value representable as an
// unsigned 256-bit integer.
func CheckAmount(v *big.Int) error {
	if v == nil {
		return ErrNilAmount
	}
	if v.Sign() < 0 {
		return ErrNegativeAmount
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return ErrAmountOverflow
	}
	return nil
}

// CheckPositive is CheckAmount with an additional non-zero requirement.
func CheckPositive(v *big.Int) error {
	if err := CheckAmount(v); err != nil {
		return err
	}
	if v.Sign() == 0 {
		return ErrZeroAmount
	}
	return nil
}

// CheckedAdd returns a+b, failing when the sum leaves the unsigned 256-bit
// range.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	x, overflow := uint256.FromBig(orZero(a))
	if overflow {
		return nil, ErrAmountOverflow
	}
	y, overflow := uint256.FromBig(orZero(b))
	if overflow {
		return nil, ErrAmountOverflow
	}
	sum, carry := new(uint256.Int).AddOverflow(x, y)
	if carry {
		return nil, ErrAmountOverflow
	}
	return sum.ToBig(), nil
}

// Copy returns a defensive copy of v, treating nil as zero.
func Copy(v *big.Int) *big.Int {
	return new(big.Int).Set(orZero(v))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
