package payments

import (
	"errors"
	"math/big"
	"time"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/bank"
	"padipay/native/common"
	"padipay/native/fees"
)

// RoleOwner mirrors the ledger owner role.
const RoleOwner = "owner"

var (
	errNilState = errors.New("payments engine: state not configured")
	errNilDeps  = errors.New("payments engine: bank, escrow and registry must be configured")
)

type engineState interface {
	NextPaymentID() (uint64, error)
	PutPayment(record *Record) error
	Payment(id uint64) (*Record, error)
	PendingPayments(fingerprint [32]byte) ([]uint64, error)
	SetPendingPayments(fingerprint [32]byte, ids []uint64) error
	PaymentStats() (*Stats, error)
	SetPaymentStats(stats *Stats) error
	FeePolicy() (*fees.Policy, error)
	SetFeePolicy(policy *fees.Policy) error
	SenderQuota(addr [20]byte) (*common.QuotaNow, error)
	SetSenderQuota(addr [20]byte, usage *common.QuotaNow) error
	IsPaused(module string) bool
	SetPaused(module string, paused bool) error
	HasRole(role string, addr []byte) bool
}

// Ledger is the asset ledger the engine moves funds through.
type Ledger interface {
	Balance(addr [20]byte, symbol string) (*big.Int, error)
	Allowance(owner, spender [20]byte, symbol string) (*big.Int, error)
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
	TransferFrom(spender, owner, to [20]byte, symbol string, amount *big.Int) error
}

// Escrow holds funds for fingerprints without a registered address.
type Escrow interface {
	IsSupported(asset string) (bool, error)
	Deposit(caller [20]byte, fingerprint [32]byte, asset string, amount *big.Int) error
	VaultAddress() [20]byte
}

// Directory resolves fingerprints to registered addresses.
type Directory interface {
	Lookup(fingerprint [32]byte) ([20]byte, bool, error)
}

// Engine sends payments to phone fingerprints. It owns the payment records
// and platform statistics; balances, escrow and registry are reached through
// their engines.
type Engine struct {
	state     engineState
	ledger    Ledger
	escrow    Escrow
	directory Directory
	emitter   events.Emitter
	nowFn     func() uint64
	module    [20]byte
	quota     common.Quota
}

// NewEngine creates a payments engine using the payments module address.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
		module:  common.ModuleAddress(common.ModulePayments),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset ledger.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetEscrow configures the escrow store.
func (e *Engine) SetEscrow(escrow Escrow) { e.escrow = escrow }

// SetDirectory configures the fingerprint directory.
func (e *Engine) SetDirectory(directory Directory) { e.directory = directory }

// SetQuota configures the per-sender rolling limits. The zero quota disables
// them.
func (e *Engine) SetQuota(q common.Quota) { e.quota = q }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used for payment timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// ModuleAddress returns the account senders must approve before paying.
func (e *Engine) ModuleAddress() [20]byte { return e.module }

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil && evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.ledger == nil || e.escrow == nil || e.directory == nil {
		return errNilDeps
	}
	return nil
}

func (e *Engine) requireOwner(op string, caller [20]byte) error {
	if !e.state.HasRole(RoleOwner, caller[:]) {
		return coreerr.Unauthorized(op, ErrNotOwner)
	}
	return nil
}

// SendPayment pays gross of asset from caller to whoever owns fingerprint.
// When the fingerprint is registered the net amount is delivered directly;
// otherwise it is escrowed until the owner registers and claims.
func (e *Engine) SendPayment(caller [20]byte, fingerprint [32]byte, asset string, gross *big.Int, memo string) (*Record, error) {
	const op = "payments.send"
	if err := e.ready(); err != nil {
		return nil, err
	}

	// Checks.
	if err := common.Guard(e.state, common.ModulePayments); err != nil {
		return nil, coreerr.Conflict(op, err)
	}
	symbol, err := bank.NormalizeSymbol(asset)
	if err != nil {
		return nil, coreerr.Invalid(op, err)
	}
	supported, err := e.escrow.IsSupported(symbol)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, coreerr.Wrapf(coreerr.KindInvalidInput, op, ErrUnsupportedAsset, "asset %s", symbol)
	}
	if len(memo) > MaxMemoLength {
		return nil, coreerr.Invalid(op, ErrMemoTooLong)
	}
	if fingerprint == ([32]byte{}) {
		return nil, coreerr.Invalid(op, ErrZeroFingerprint)
	}
	policy, err := e.state.FeePolicy()
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, coreerr.Conflict(op, ErrPolicyNotSet)
	}
	quote, err := fees.Compute(*policy, gross)
	if err != nil {
		return nil, err
	}
	now := e.now()
	usage, err := e.checkQuota(op, caller, quote.Gross, now)
	if err != nil {
		return nil, err
	}
	balance, err := e.ledger.Balance(caller, symbol)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(quote.Gross) < 0 {
		return nil, coreerr.Wrapf(coreerr.KindInsufficientFunds, op, ErrInsufficientBal, "have %s, need %s", balance, quote.Gross)
	}
	allowance, err := e.ledger.Allowance(caller, e.module, symbol)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(quote.Gross) < 0 {
		return nil, coreerr.Wrapf(coreerr.KindInsufficientFunds, op, ErrInsufficientAllow, "allowance %s, need %s", allowance, quote.Gross)
	}
	recipient, registered, err := e.directory.Lookup(fingerprint)
	if err != nil {
		return nil, err
	}

	// Effects.
	id, err := e.state.NextPaymentID()
	if err != nil {
		return nil, err
	}
	record := &Record{
		ID:                   id,
		Sender:               caller,
		RecipientFingerprint: fingerprint,
		GrossAmount:          quote.Gross,
		FeeAmount:            quote.Fee,
		NetAmount:            quote.Net,
		Asset:                symbol,
		Memo:                 memo,
		Timestamp:            now,
		IsEscrowed:           !registered,
		Claimed:              registered,
	}
	if registered {
		record.Recipient = recipient
	}
	if err := e.state.PutPayment(record); err != nil {
		return nil, err
	}
	stats, err := e.state.PaymentStats()
	if err != nil {
		return nil, err
	}
	stats = stats.Clone()
	stats.TotalSent++
	if registered {
		stats.TotalClaimed++
	}
	if stats.TotalVolume, err = common.CheckedAdd(stats.TotalVolume, quote.Gross); err != nil {
		return nil, coreerr.Bounds(op, err)
	}
	if stats.TotalFees, err = common.CheckedAdd(stats.TotalFees, quote.Fee); err != nil {
		return nil, coreerr.Bounds(op, err)
	}
	if err := e.state.SetPaymentStats(stats); err != nil {
		return nil, err
	}
	if usage != nil {
		if err := e.state.SetSenderQuota(caller, usage); err != nil {
			return nil, err
		}
	}
	if !registered {
		if err := e.escrow.Deposit(e.module, fingerprint, symbol, quote.Net); err != nil {
			return nil, err
		}
		pending, err := e.state.PendingPayments(fingerprint)
		if err != nil {
			return nil, err
		}
		if err := e.state.SetPendingPayments(fingerprint, append(pending, id)); err != nil {
			return nil, err
		}
	}

	// Interactions.
	if err := e.ledger.TransferFrom(e.module, caller, e.module, symbol, quote.Gross); err != nil {
		return nil, err
	}
	if quote.Fee.Sign() > 0 {
		if err := e.ledger.Transfer(e.module, policy.FeeRecipient, symbol, quote.Fee); err != nil {
			return nil, err
		}
	}
	destination := recipient
	if !registered {
		destination = e.escrow.VaultAddress()
	}
	if err := e.ledger.Transfer(e.module, destination, symbol, quote.Net); err != nil {
		return nil, err
	}

	e.emit(events.PaymentSent{
		ID:                   record.ID,
		Sender:               record.Sender,
		RecipientFingerprint: record.RecipientFingerprint,
		Recipient:            record.Recipient,
		GrossAmount:          common.Copy(record.GrossAmount),
		FeeAmount:            common.Copy(record.FeeAmount),
		NetAmount:            common.Copy(record.NetAmount),
		Asset:                record.Asset,
		Memo:                 record.Memo,
		Timestamp:            record.Timestamp,
		IsEscrowed:           record.IsEscrowed,
		Claimed:              record.Claimed,
	})
	return record.Clone(), nil
}

func (e *Engine) checkQuota(op string, sender [20]byte, gross *big.Int, now uint64) (*common.QuotaNow, error) {
	if !e.quota.Enabled() {
		return nil, nil
	}
	prev, err := e.state.SenderQuota(sender)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		prev = &common.QuotaNow{Volume: big.NewInt(0)}
	}
	next, err := common.CheckQuota(e.quota, e.quota.EpochAt(now), *prev, 1, gross)
	if err != nil {
		return nil, coreerr.Bounds(op, err)
	}
	return &next, nil
}

// MarkClaimed flips Claimed on every pending payment to fingerprint in one of
// the claimed assets and counts them into TotalClaimed. It returns the number
// of records flipped.
func (e *Engine) MarkClaimed(fingerprint [32]byte, assets []string) (int, error) {
	if e.state == nil {
		return 0, errNilState
	}
	claimedAssets := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		claimedAssets[asset] = struct{}{}
	}
	pending, err := e.state.PendingPayments(fingerprint)
	if err != nil {
		return 0, err
	}
	remaining := make([]uint64, 0, len(pending))
	flipped := 0
	for _, id := range pending {
		record, err := e.state.Payment(id)
		if err != nil {
			return 0, err
		}
		if record == nil || record.Claimed {
			continue
		}
		if _, ok := claimedAssets[record.Asset]; !ok {
			remaining = append(remaining, id)
			continue
		}
		record.Claimed = true
		if err := e.state.PutPayment(record); err != nil {
			return 0, err
		}
		flipped++
	}
	if err := e.state.SetPendingPayments(fingerprint, remaining); err != nil {
		return 0, err
	}
	if flipped > 0 {
		stats, err := e.state.PaymentStats()
		if err != nil {
			return 0, err
		}
		stats = stats.Clone()
		stats.TotalClaimed += uint64(flipped)
		if err := e.state.SetPaymentStats(stats); err != nil {
			return 0, err
		}
	}
	return flipped, nil
}

// GetPayment returns the payment record with the given id.
func (e *Engine) GetPayment(id uint64) (*Record, error) {
	if e.state == nil {
		return nil, errNilState
	}
	record, err := e.state.Payment(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, coreerr.Wrapf(coreerr.KindInvalidInput, "payments.get", ErrPaymentNotFound, "id %d", id)
	}
	return record, nil
}

// PendingPayments lists the escrowed, unclaimed payments to fingerprint.
func (e *Engine) PendingPayments(fingerprint [32]byte) ([]*Record, error) {
	if e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.PendingPayments(fingerprint)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		record, err := e.state.Payment(id)
		if err != nil {
			return nil, err
		}
		if record != nil && !record.Claimed {
			out = append(out, record)
		}
	}
	return out, nil
}

// GetPlatformStats returns the platform counters.
func (e *Engine) GetPlatformStats() (*Stats, error) {
	if e.state == nil {
		return nil, errNilState
	}
	stats, err := e.state.PaymentStats()
	if err != nil {
		return nil, err
	}
	return stats.Clone(), nil
}

// FeePolicy returns the active fee policy.
func (e *Engine) FeePolicy() (*fees.Policy, error) {
	if e.state == nil {
		return nil, errNilState
	}
	policy, err := e.state.FeePolicy()
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, coreerr.Conflict("payments.fee_policy", ErrPolicyNotSet)
	}
	return policy, nil
}

// SetFeePolicy replaces the fee policy. Owner only.
func (e *Engine) SetFeePolicy(caller [20]byte, policy fees.Policy) error {
	const op = "payments.set_fee_policy"
	if e.state == nil {
		return errNilState
	}
	if err := e.requireOwner(op, caller); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	stored := policy.Clone()
	if err := e.state.SetFeePolicy(&stored); err != nil {
		return err
	}
	e.emit(events.PaymentFeePolicyUpdated{
		FeeBasisPoints:   stored.FeeBasisPoints,
		MinimumFee:       common.Copy(stored.MinimumFee),
		MinPaymentAmount: common.Copy(stored.MinPaymentAmount),
		MaxPaymentAmount: common.Copy(stored.MaxPaymentAmount),
		FeeRecipient:     stored.FeeRecipient,
		Timestamp:        e.now(),
	})
	return nil
}

// Pause stops new payments. Claims are unaffected. Owner only.
func (e *Engine) Pause(caller [20]byte) error {
	return e.setPaused("payments.pause", caller, true)
}

// Unpause resumes payments. Owner only.
func (e *Engine) Unpause(caller [20]byte) error {
	return e.setPaused("payments.unpause", caller, false)
}

// Paused reports whether payments are paused.
func (e *Engine) Paused() bool {
	return e.state != nil && e.state.IsPaused(common.ModulePayments)
}

func (e *Engine) setPaused(op string, caller [20]byte, paused bool) error {
	if e.state == nil {
		return errNilState
	}
	if err := e.requireOwner(op, caller); err != nil {
		return err
	}
	if e.state.IsPaused(common.ModulePayments) == paused {
		if paused {
			return coreerr.Conflict(op, ErrAlreadyPaused)
		}
		return coreerr.Conflict(op, ErrNotPaused)
	}
	if err := e.state.SetPaused(common.ModulePayments, paused); err != nil {
		return err
	}
	e.emit(events.PaymentsPauseChanged{Paused: paused, By: caller, Timestamp: e.now()})
	return nil
}
