package state

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"padipay/native/common"
	"padipay/native/fees"
	"padipay/native/payments"
)

var (
	paymentSeqKey       = ethcrypto.Keccak256([]byte("payments/seq"))
	paymentStatsKey     = ethcrypto.Keccak256([]byte("payments/stats"))
	paymentPolicyKey    = ethcrypto.Keccak256([]byte("payments/fee-policy"))
	paymentRecordPrefix = []byte("payments/record")
	paymentPendingPref  = []byte("payments/pending")
	paymentQuotaPrefix  = []byte("payments/quota")
)

func paymentRecordKey(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return hashedKey(paymentRecordPrefix, buf[:])
}

func paymentPendingKey(fingerprint [32]byte) []byte {
	return hashedKey(paymentPendingPref, fingerprint[:])
}

func paymentQuotaKey(addr [20]byte) []byte {
	return hashedKey(paymentQuotaPrefix, addr[:])
}

type storedPolicy struct {
	FeeBasisPoints   uint32
	MinimumFee       *big.Int
	MinPaymentAmount *big.Int
	MaxPaymentAmount *big.Int
	FeeRecipient     [20]byte
}

type storedQuota struct {
	ReqCount uint32
	Volume   *big.Int
	EpochID  uint64
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// NextPaymentID allocates the next payment id. Ids start at 1.
func (m *Manager) NextPaymentID() (uint64, error) {
	var last uint64
	if _, err := m.getRLP(paymentSeqKey, &last); err != nil {
		return 0, err
	}
	next := last + 1
	if err := m.putRLP(paymentSeqKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

// PaymentCount returns the number of allocated payment ids.
func (m *Manager) PaymentCount() (uint64, error) {
	var last uint64
	_, err := m.getRLP(paymentSeqKey, &last)
	return last, err
}

// PutPayment stores a payment record under its id.
func (m *Manager) PutPayment(record *payments.Record) error {
	stored := record.Clone()
	stored.GrossAmount = zeroIfNil(stored.GrossAmount)
	stored.FeeAmount = zeroIfNil(stored.FeeAmount)
	stored.NetAmount = zeroIfNil(stored.NetAmount)
	return m.putRLP(paymentRecordKey(record.ID), stored)
}

// Payment returns the record with the id or nil when unknown.
func (m *Manager) Payment(id uint64) (*payments.Record, error) {
	record := new(payments.Record)
	ok, err := m.getRLP(paymentRecordKey(id), record)
	if err != nil || !ok {
		return nil, err
	}
	return record, nil
}

// PendingPayments lists unclaimed escrowed payment ids for a fingerprint.
func (m *Manager) PendingPayments(fingerprint [32]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.getRLP(paymentPendingKey(fingerprint), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetPendingPayments replaces the pending list. An empty list removes it.
func (m *Manager) SetPendingPayments(fingerprint [32]byte, ids []uint64) error {
	key := paymentPendingKey(fingerprint)
	if len(ids) == 0 {
		return m.trie.Delete(key)
	}
	return m.putRLP(key, ids)
}

// PaymentStats returns the platform totals. Missing totals are zero.
func (m *Manager) PaymentStats() (*payments.Stats, error) {
	stats := new(payments.Stats)
	if _, err := m.getRLP(paymentStatsKey, stats); err != nil {
		return nil, err
	}
	stats.TotalVolume = zeroIfNil(stats.TotalVolume)
	stats.TotalFees = zeroIfNil(stats.TotalFees)
	return stats, nil
}

// SetPaymentStats stores the platform totals.
func (m *Manager) SetPaymentStats(stats *payments.Stats) error {
	stored := stats.Clone()
	stored.TotalVolume = zeroIfNil(stored.TotalVolume)
	stored.TotalFees = zeroIfNil(stored.TotalFees)
	return m.putRLP(paymentStatsKey, stored)
}

// FeePolicy returns the configured fee policy or nil when none is set.
func (m *Manager) FeePolicy() (*fees.Policy, error) {
	stored := new(storedPolicy)
	ok, err := m.getRLP(paymentPolicyKey, stored)
	if err != nil || !ok {
		return nil, err
	}
	return &fees.Policy{
		FeeBasisPoints:   stored.FeeBasisPoints,
		MinimumFee:       stored.MinimumFee,
		MinPaymentAmount: stored.MinPaymentAmount,
		MaxPaymentAmount: stored.MaxPaymentAmount,
		FeeRecipient:     stored.FeeRecipient,
	}, nil
}

// SetFeePolicy stores the fee policy.
func (m *Manager) SetFeePolicy(policy *fees.Policy) error {
	return m.putRLP(paymentPolicyKey, &storedPolicy{
		FeeBasisPoints:   policy.FeeBasisPoints,
		MinimumFee:       zeroIfNil(policy.MinimumFee),
		MinPaymentAmount: zeroIfNil(policy.MinPaymentAmount),
		MaxPaymentAmount: zeroIfNil(policy.MaxPaymentAmount),
		FeeRecipient:     policy.FeeRecipient,
	})
}

// SenderQuota returns the quota usage of a sender or nil when none recorded.
func (m *Manager) SenderQuota(addr [20]byte) (*common.QuotaNow, error) {
	stored := new(storedQuota)
	ok, err := m.getRLP(paymentQuotaKey(addr), stored)
	if err != nil || !ok {
		return nil, err
	}
	return &common.QuotaNow{ReqCount: stored.ReqCount, Volume: zeroIfNil(stored.Volume), EpochID: stored.EpochID}, nil
}

// SetSenderQuota stores the quota usage of a sender.
func (m *Manager) SetSenderQuota(addr [20]byte, usage *common.QuotaNow) error {
	return m.putRLP(paymentQuotaKey(addr), &storedQuota{
		ReqCount: usage.ReqCount,
		Volume:   zeroIfNil(usage.Volume),
		EpochID:  usage.EpochID,
	})
}
