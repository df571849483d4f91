package escrow

import (
	"errors"
	"math/big"
)

var (
	ErrUnsupportedAsset   = errors.New("asset not supported by escrow")
	ErrUnknownAsset       = errors.New("asset not registered on the ledger")
	ErrAssetSupported     = errors.New("asset already supported")
	ErrZeroFingerprint    = errors.New("fingerprint must not be zero")
	ErrNotDepositor       = errors.New("caller is not the payment module")
	ErrNotOwner           = errors.New("caller is not the escrow owner")
	ErrNotClaimant        = errors.New("caller may only claim to its own address")
	ErrFingerprintNotMine = errors.New("fingerprint is not registered to the claiming address")
	ErrZeroBalance        = errors.New("zero balance")
)

// Claimed is the amount released for one asset during a claim.
type Claimed struct {
	Asset  string
	Amount *big.Int
}

// Total sums claimed amounts across assets. Only meaningful for single-asset
// deployments or same-denomination assets.
func Total(claims []Claimed) *big.Int {
	total := big.NewInt(0)
	for _, c := range claims {
		if c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}
