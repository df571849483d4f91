package wallet

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/common"
)

// RoleOwner mirrors the ledger owner role. Holders may assign wallet owners.
const RoleOwner = "owner"

var (
	errNilState      = errors.New("wallet engine: state not configured")
	errNilDispatcher = errors.New("wallet engine: dispatcher not configured")
)

type engineState interface {
	WalletState(addr [20]byte) (*State, error)
	PutWalletState(state *State) error
	HasRole(role string, addr []byte) bool
}

// Dispatcher runs a single call with from as the acting address.
type Dispatcher interface {
	Dispatch(from [20]byte, call Call) error
}

// Sponsor decides whether a paymaster covers an operation.
type Sponsor interface {
	Sponsor(paymaster [20]byte, op *UserOperation, opHash [32]byte) error
}

// Engine provisions counterfactual wallets, validates signed operations
// against them and executes the validated calls through the dispatcher.
type Engine struct {
	state      engineState
	dispatcher Dispatcher
	sponsor    Sponsor
	emitter    events.Emitter
	nowFn      func() uint64
	chainID    uint64

	provisioner    [20]byte
	implementation [20]byte
	entryPoint     [20]byte
	initCodeHash   []byte
}

// NewEngine creates a wallet engine using the module addresses for the
// provisioner, the account implementation and the entry point.
func NewEngine(chainID uint64) *Engine {
	impl := common.ModuleAddress(common.ModuleAccount)
	return &Engine{
		emitter:        events.NoopEmitter{},
		nowFn:          func() uint64 { return uint64(time.Now().Unix()) },
		chainID:        chainID,
		provisioner:    common.ModuleAddress(common.ModuleWallet),
		implementation: impl,
		entryPoint:     common.ModuleAddress(common.ModuleEntryPoint),
		initCodeHash:   crypto.Keccak256(ProxyInitCode(impl)),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetDispatcher configures the executor for wallet calls.
func (e *Engine) SetDispatcher(d Dispatcher) { e.dispatcher = d }

// SetSponsor configures the paymaster policy. A nil sponsor rejects every
// operation that names a paymaster.
func (e *Engine) SetSponsor(s Sponsor) { e.sponsor = s }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for timestamps.
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

// ChainID returns the chain id mixed into operation hashes.
func (e *Engine) ChainID() uint64 { return e.chainID }

// ProvisionerAddress returns the CREATE2 deployer address.
func (e *Engine) ProvisionerAddress() [20]byte { return e.provisioner }

// EntryPointAddress returns the address wallets accept operations from.
func (e *Engine) EntryPointAddress() [20]byte { return e.entryPoint }

// ImplementationAddress returns the account implementation the proxy
// template delegates to.
func (e *Engine) ImplementationAddress() [20]byte { return e.implementation }

// ComputeAddress returns the wallet address for a fingerprint. It is usable
// before the wallet is deployed.
func (e *Engine) ComputeAddress(fingerprint [32]byte) [20]byte {
	return ComputeAddress(e.provisioner, fingerprint, e.initCodeHash)
}

// WalletState returns the stored wallet state or nil when not deployed.
func (e *Engine) WalletState(addr [20]byte) (*State, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.WalletState(addr)
}

// Nonce returns the next expected nonce of a deployed wallet.
func (e *Engine) Nonce(addr [20]byte) (uint64, error) {
	const op = "wallet.nonce"
	st, err := e.WalletState(addr)
	if err != nil {
		return 0, err
	}
	if st == nil {
		return 0, coreerr.Conflict(op, ErrWalletNotDeployed)
	}
	return st.Nonce, nil
}
