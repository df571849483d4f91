package bank

import (
	"errors"
	"math/big"
	"time"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/common"
)

// RoleOwner is the state role granting administrative rights over the ledger.
const RoleOwner = "owner"

var errNilState = errors.New("bank engine: state not configured")

type engineState interface {
	Asset(symbol string) (*Asset, error)
	PutAsset(asset *Asset) error
	AssetList() ([]string, error)
	Balance(addr [20]byte, asset string) (*big.Int, error)
	SetBalance(addr [20]byte, asset string, amount *big.Int) error
	Allowance(owner, spender [20]byte, asset string) (*big.Int, error)
	SetAllowance(owner, spender [20]byte, asset string, amount *big.Int) error
	HasRole(role string, addr []byte) bool
}

// Engine keeps per-address balances and allowances for every registered
// asset. Module accounts hold balances like any other address.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() uint64
}

// NewEngine creates a bank engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
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

func (e *Engine) requireOwner(op string, caller [20]byte) error {
	if !e.state.HasRole(RoleOwner, caller[:]) {
		return coreerr.Unauthorized(op, ErrNotOwner)
	}
	return nil
}

func (e *Engine) resolveAsset(op, symbol string) (string, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return "", coreerr.Invalid(op, err)
	}
	asset, err := e.state.Asset(normalized)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", coreerr.Wrapf(coreerr.KindInvalidInput, op, ErrUnknownAsset, "asset %s", normalized)
	}
	return normalized, nil
}

// RegisterAsset adds a new asset to the ledger. Owner only.
func (e *Engine) RegisterAsset(caller [20]byte, symbol, name string, decimals uint8) (*Asset, error) {
	const op = "bank.register_asset"
	if e.state == nil {
		return nil, errNilState
	}
	if err := e.requireOwner(op, caller); err != nil {
		return nil, err
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, coreerr.Invalid(op, err)
	}
	if decimals > 36 {
		return nil, coreerr.New(coreerr.KindInvalidInput, op, "decimals must not exceed 36")
	}
	existing, err := e.state.Asset(normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, coreerr.Wrapf(coreerr.KindStateConflict, op, ErrAssetExists, "asset %s", normalized)
	}
	if name == "" {
		name = normalized
	}
	asset := &Asset{Symbol: normalized, Name: name, Decimals: decimals}
	if err := e.state.PutAsset(asset); err != nil {
		return nil, err
	}
	e.emit(events.BankAssetRegistered{Symbol: normalized, Name: name, Decimals: decimals, Timestamp: e.now()})
	return asset, nil
}

// Asset returns the metadata for a registered asset or nil when unknown.
func (e *Engine) Asset(symbol string) (*Asset, error) {
	if e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, coreerr.Invalid("bank.asset", err)
	}
	return e.state.Asset(normalized)
}

// AssetExists reports whether the symbol names a registered asset.
func (e *Engine) AssetExists(symbol string) bool {
	asset, err := e.Asset(symbol)
	return err == nil && asset != nil
}

// Assets lists registered asset symbols in sorted order.
func (e *Engine) Assets() ([]string, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.AssetList()
}

// Mint credits newly issued units to an address. Owner only.
func (e *Engine) Mint(caller, to [20]byte, symbol string, amount *big.Int) error {
	const op = "bank.mint"
	if e.state == nil {
		return errNilState
	}
	if err := e.requireOwner(op, caller); err != nil {
		return err
	}
	if common.IsZeroAddress(to) {
		return coreerr.Invalid(op, ErrZeroRecipient)
	}
	if err := common.CheckPositive(amount); err != nil {
		return coreerr.Invalid(op, err)
	}
	asset, err := e.resolveAsset(op, symbol)
	if err != nil {
		return err
	}
	balance, err := e.state.Balance(to, asset)
	if err != nil {
		return err
	}
	next, err := common.CheckedAdd(balance, amount)
	if err != nil {
		return coreerr.Bounds(op, err)
	}
	if err := e.state.SetBalance(to, asset, next); err != nil {
		return err
	}
	e.emit(events.BankMint{Asset: asset, To: to, Amount: common.Copy(amount), Timestamp: e.now()})
	return nil
}

// Transfer moves amount of the asset from one address to another.
func (e *Engine) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	return e.transfer("bank.transfer", from, to, symbol, amount)
}

func (e *Engine) transfer(op string, from, to [20]byte, symbol string, amount *big.Int) error {
	if e.state == nil {
		return errNilState
	}
	if common.IsZeroAddress(to) {
		return coreerr.Invalid(op, ErrZeroRecipient)
	}
	if err := common.CheckPositive(amount); err != nil {
		return coreerr.Invalid(op, err)
	}
	asset, err := e.resolveAsset(op, symbol)
	if err != nil {
		return err
	}
	fromBal, err := e.state.Balance(from, asset)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return coreerr.Wrapf(coreerr.KindInsufficientFunds, op, ErrInsufficientBal, "have %s %s, need %s", fromBal, asset, amount)
	}
	if from != to {
		toBal, err := e.state.Balance(to, asset)
		if err != nil {
			return err
		}
		credited, err := common.CheckedAdd(toBal, amount)
		if err != nil {
			return coreerr.Bounds(op, err)
		}
		if err := e.state.SetBalance(from, asset, new(big.Int).Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := e.state.SetBalance(to, asset, credited); err != nil {
			return err
		}
	}
	e.emit(events.BankTransfer{Asset: asset, From: from, To: to, Amount: common.Copy(amount), Timestamp: e.now()})
	return nil
}

// Approve sets the amount spender may move out of owner's balance. A zero
// amount revokes the allowance.
func (e *Engine) Approve(owner, spender [20]byte, symbol string, amount *big.Int) error {
	const op = "bank.approve"
	if e.state == nil {
		return errNilState
	}
	if common.IsZeroAddress(spender) {
		return coreerr.Invalid(op, ErrZeroSpender)
	}
	if err := common.CheckAmount(amount); err != nil {
		return coreerr.Invalid(op, err)
	}
	asset, err := e.resolveAsset(op, symbol)
	if err != nil {
		return err
	}
	if err := e.state.SetAllowance(owner, spender, asset, common.Copy(amount)); err != nil {
		return err
	}
	e.emit(events.BankApproval{Asset: asset, Owner: owner, Spender: spender, Amount: common.Copy(amount), Timestamp: e.now()})
	return nil
}

// TransferFrom moves amount from owner to recipient using spender's allowance.
func (e *Engine) TransferFrom(spender, owner, to [20]byte, symbol string, amount *big.Int) error {
	const op = "bank.transfer_from"
	if e.state == nil {
		return errNilState
	}
	if err := common.CheckPositive(amount); err != nil {
		return coreerr.Invalid(op, err)
	}
	asset, err := e.resolveAsset(op, symbol)
	if err != nil {
		return err
	}
	allowance, err := e.state.Allowance(owner, spender, asset)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return coreerr.Wrapf(coreerr.KindInsufficientFunds, op, ErrInsufficientAllow, "allowance %s %s, need %s", allowance, asset, amount)
	}
	balance, err := e.state.Balance(owner, asset)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return coreerr.Wrapf(coreerr.KindInsufficientFunds, op, ErrInsufficientBal, "have %s %s, need %s", balance, asset, amount)
	}
	if err := e.state.SetAllowance(owner, spender, asset, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	return e.transfer(op, owner, to, asset, amount)
}

// Balance returns the balance of addr for the asset. Unknown assets report
// zero.
func (e *Engine) Balance(addr [20]byte, symbol string) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, coreerr.Invalid("bank.balance", err)
	}
	return e.state.Balance(addr, normalized)
}

// Allowance returns the remaining amount spender may move from owner.
func (e *Engine) Allowance(owner, spender [20]byte, symbol string) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, coreerr.Invalid("bank.allowance", err)
	}
	return e.state.Allowance(owner, spender, normalized)
}
