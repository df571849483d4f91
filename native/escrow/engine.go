package escrow

import (
	"errors"
	"math/big"
	"time"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/bank"
	"padipay/native/common"
)

// RoleOwner mirrors the ledger owner role.
const RoleOwner = "owner"

var (
	errNilState    = errors.New("escrow engine: state not configured")
	errNilBank     = errors.New("escrow engine: bank not configured")
	errNilRegistry = errors.New("escrow engine: registry not configured")
)

type engineState interface {
	EscrowBalance(fingerprint [32]byte, asset string) (*big.Int, error)
	SetEscrowBalance(fingerprint [32]byte, asset string, amount *big.Int) error
	EscrowAssets() ([]string, error)
	SetEscrowAsset(asset string, supported bool) error
	HasRole(role string, addr []byte) bool
}

// Ledger moves escrowed funds out of the vault.
type Ledger interface {
	AssetExists(symbol string) bool
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
}

// Directory answers which address a fingerprint is bound to.
type Directory interface {
	Lookup(fingerprint [32]byte) ([20]byte, bool, error)
}

// Engine holds funds sent to fingerprints that had no registered address at
// payment time. Balances are keyed by fingerprint and asset; the funds sit in
// the vault account until claimed.
type Engine struct {
	state     engineState
	ledger    Ledger
	directory Directory
	emitter   events.Emitter
	nowFn     func() uint64
	vault     [20]byte
	depositor [20]byte
}

// NewEngine creates an escrow engine with the default module vault and
// depositor addresses.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		nowFn:     func() uint64 { return uint64(time.Now().Unix()) },
		vault:     common.ModuleAddress(common.ModuleEscrow),
		depositor: common.ModuleAddress(common.ModulePayments),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset ledger used to release funds.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetDirectory configures the fingerprint directory consulted on claim.
func (e *Engine) SetDirectory(directory Directory) { e.directory = directory }

// SetDepositor overrides the only address allowed to record deposits.
func (e *Engine) SetDepositor(addr [20]byte) { e.depositor = addr }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for event timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// VaultAddress returns the account holding escrowed funds.
func (e *Engine) VaultAddress() [20]byte { return e.vault }

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
	switch {
	case e.state == nil:
		return errNilState
	case e.ledger == nil:
		return errNilBank
	case e.directory == nil:
		return errNilRegistry
	}
	return nil
}

// IsSupported reports whether deposits in asset are accepted.
func (e *Engine) IsSupported(asset string) (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	normalized, err := bank.NormalizeSymbol(asset)
	if err != nil {
		return false, nil
	}
	assets, err := e.state.EscrowAssets()
	if err != nil {
		return false, err
	}
	for _, supported := range assets {
		if supported == normalized {
			return true, nil
		}
	}
	return false, nil
}

// SupportedAssets lists the supported assets in sorted order.
func (e *Engine) SupportedAssets() ([]string, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.EscrowAssets()
}

// AddSupportedAsset whitelists a registered ledger asset. Owner only.
func (e *Engine) AddSupportedAsset(caller [20]byte, asset string) error {
	const op = "escrow.add_supported_asset"
	if err := e.ready(); err != nil {
		return err
	}
	if !e.state.HasRole(RoleOwner, caller[:]) {
		return coreerr.Unauthorized(op, ErrNotOwner)
	}
	normalized, err := bank.NormalizeSymbol(asset)
	if err != nil {
		return coreerr.Invalid(op, err)
	}
	if !e.ledger.AssetExists(normalized) {
		return coreerr.Wrapf(coreerr.KindInvalidInput, op, ErrUnknownAsset, "asset %s", normalized)
	}
	supported, err := e.IsSupported(normalized)
	if err != nil {
		return err
	}
	if supported {
		return coreerr.Wrapf(coreerr.KindStateConflict, op, ErrAssetSupported, "asset %s", normalized)
	}
	if err := e.state.SetEscrowAsset(normalized, true); err != nil {
		return err
	}
	e.emit(events.EscrowAssetChanged{Asset: normalized, Supported: true, Timestamp: e.now()})
	return nil
}

// RemoveSupportedAsset stops accepting deposits in asset. Existing balances
// become claimable again once the asset is re-added. Owner only.
func (e *Engine) RemoveSupportedAsset(caller [20]byte, asset string) error {
	const op = "escrow.remove_supported_asset"
	if err := e.ready(); err != nil {
		return err
	}
	if !e.state.HasRole(RoleOwner, caller[:]) {
		return coreerr.Unauthorized(op, ErrNotOwner)
	}
	normalized, err := bank.NormalizeSymbol(asset)
	if err != nil {
		return coreerr.Invalid(op, err)
	}
	supported, err := e.IsSupported(normalized)
	if err != nil {
		return err
	}
	if !supported {
		return coreerr.Wrapf(coreerr.KindStateConflict, op, ErrUnsupportedAsset, "asset %s", normalized)
	}
	if err := e.state.SetEscrowAsset(normalized, false); err != nil {
		return err
	}
	e.emit(events.EscrowAssetChanged{Asset: normalized, Supported: false, Timestamp: e.now()})
	return nil
}

// Deposit records amount as claimable by fingerprint. The funds must already
// sit in the vault. Only the payment module may deposit.
func (e *Engine) Deposit(caller [20]byte, fingerprint [32]byte, asset string, amount *big.Int) error {
	const op = "escrow.deposit"
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.depositor {
		return coreerr.Unauthorized(op, ErrNotDepositor)
	}
	if fingerprint == ([32]byte{}) {
		return coreerr.Invalid(op, ErrZeroFingerprint)
	}
	if err := common.CheckPositive(amount); err != nil {
		return coreerr.Invalid(op, err)
	}
	normalized, err := bank.NormalizeSymbol(asset)
	if err != nil {
		return coreerr.Invalid(op, err)
	}
	supported, err := e.IsSupported(normalized)
	if err != nil {
		return err
	}
	if !supported {
		return coreerr.Wrapf(coreerr.KindInvalidInput, op, ErrUnsupportedAsset, "asset %s", normalized)
	}
	balance, err := e.state.EscrowBalance(fingerprint, normalized)
	if err != nil {
		return err
	}
	next, err := common.CheckedAdd(balance, amount)
	if err != nil {
		return coreerr.Bounds(op, err)
	}
	if err := e.state.SetEscrowBalance(fingerprint, normalized, next); err != nil {
		return err
	}
	e.emit(events.EscrowDeposited{
		Fingerprint: fingerprint,
		Asset:       normalized,
		Amount:      common.Copy(amount),
		Balance:     common.Copy(next),
		Timestamp:   e.now(),
	})
	return nil
}

// Claim releases every non-zero supported balance held for fingerprint to
// addr. The registry must bind fingerprint to exactly addr and the caller
// must be addr. Balances are zeroed before funds leave the vault.
func (e *Engine) Claim(caller [20]byte, fingerprint [32]byte, addr [20]byte) ([]Claimed, error) {
	const op = "escrow.claim"
	if err := e.ready(); err != nil {
		return nil, err
	}
	if caller != addr {
		return nil, coreerr.Unauthorized(op, ErrNotClaimant)
	}
	bound, ok, err := e.directory.Lookup(fingerprint)
	if err != nil {
		return nil, err
	}
	if !ok || bound != addr {
		return nil, coreerr.Conflict(op, ErrFingerprintNotMine)
	}
	assets, err := e.state.EscrowAssets()
	if err != nil {
		return nil, err
	}
	claims := make([]Claimed, 0, len(assets))
	for _, asset := range assets {
		balance, err := e.state.EscrowBalance(fingerprint, asset)
		if err != nil {
			return nil, err
		}
		if balance.Sign() > 0 {
			claims = append(claims, Claimed{Asset: asset, Amount: balance})
		}
	}
	if len(claims) == 0 {
		return nil, coreerr.Conflict(op, ErrZeroBalance)
	}
	for _, c := range claims {
		if err := e.state.SetEscrowBalance(fingerprint, c.Asset, big.NewInt(0)); err != nil {
			return nil, err
		}
	}
	now := e.now()
	for _, c := range claims {
		if err := e.ledger.Transfer(e.vault, addr, c.Asset, c.Amount); err != nil {
			return nil, err
		}
		e.emit(events.EscrowClaimed{Fingerprint: fingerprint, Claimant: addr, Asset: c.Asset, Amount: common.Copy(c.Amount), Timestamp: now})
	}
	return claims, nil
}

// ClaimableAmount returns the escrowed balance for fingerprint and asset.
func (e *Engine) ClaimableAmount(fingerprint [32]byte, asset string) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	normalized, err := bank.NormalizeSymbol(asset)
	if err != nil {
		return nil, coreerr.Invalid("escrow.claimable_amount", err)
	}
	return e.state.EscrowBalance(fingerprint, normalized)
}
