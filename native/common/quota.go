package common

import (
	"errors"
	"math"
	"math/big"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaVolumeExceeded   = errors.New("quota volume cap exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for an address.
type QuotaNow struct {
	ReqCount uint32
	Volume   *big.Int
	EpochID  uint64
}

// Quota defines the limits enforced per address and window. Zero values
// disable the respective limit.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxVolumePerEpoch   *big.Int
	EpochSeconds        uint32
}

// Enabled reports whether any limit is configured.
func (q Quota) Enabled() bool {
	return q.EpochSeconds > 0 && (q.MaxRequestsPerEpoch > 0 || (q.MaxVolumePerEpoch != nil && q.MaxVolumePerEpoch.Sign() > 0))
}

// EpochAt returns the window index containing the unix timestamp.
func (q Quota) EpochAt(unix uint64) uint64 {
	if q.EpochSeconds == 0 {
		return 0
	}
	return unix / uint64(q.EpochSeconds)
}

// CheckQuota verifies whether the additional request and volume fit within
// the configured quota. The returned QuotaNow reflects the updated counters
// when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addVolume *big.Int) (QuotaNow, error) {
	next := QuotaNow{ReqCount: prev.ReqCount, Volume: Copy(prev.Volume), EpochID: prev.EpochID}
	if prev.EpochID != nowEpoch {
		next = QuotaNow{Volume: big.NewInt(0), EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	if addVolume != nil && addVolume.Sign() > 0 {
		sum, err := CheckedAdd(next.Volume, addVolume)
		if err != nil {
			return prev, ErrQuotaCounterOverflow
		}
		next.Volume = sum
	}
	if q.MaxVolumePerEpoch != nil && q.MaxVolumePerEpoch.Sign() > 0 && next.Volume.Cmp(q.MaxVolumePerEpoch) > 0 {
		return prev, ErrQuotaVolumeExceeded
	}

	return next, nil
}
