package registry

import (
	"errors"
	"time"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/common"
)

const (
	// RoleOwner mirrors the ledger owner role.
	RoleOwner = "owner"
	// RoleVerifier marks addresses allowed to bind fingerprints on behalf
	// of users once any verifier is configured.
	RoleVerifier = "registry.verifier"
)

var errNilState = errors.New("registry engine: state not configured")

type engineState interface {
	RegistryEntry(fingerprint [32]byte) (*Entry, error)
	RegistryFingerprint(addr [20]byte) ([32]byte, bool, error)
	BindFingerprint(entry *Entry) error
	ReleaseFingerprint(fingerprint [32]byte) (*Entry, error)
	HasRole(role string, addr []byte) bool
	SetRole(role string, addr []byte) error
	RemoveRole(role string, addr []byte) error
	RoleMembers(role string) ([][]byte, error)
}

// Engine maintains the bijection between phone fingerprints and addresses.
// Every mutation goes through bind and release so both directions change
// together.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() uint64
}

// NewEngine creates a registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used for registration timestamps.
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

func (e *Engine) isOwner(addr [20]byte) bool {
	return e.state.HasRole(RoleOwner, addr[:])
}

func (e *Engine) verifiersConfigured() (bool, error) {
	members, err := e.state.RoleMembers(RoleVerifier)
	if err != nil {
		return false, err
	}
	return len(members) > 0, nil
}

// bind writes the pair, first releasing any fingerprint the address already
// owns.
func (e *Engine) bind(fingerprint [32]byte, addr [20]byte, now uint64) error {
	previous, ok, err := e.state.RegistryFingerprint(addr)
	if err != nil {
		return err
	}
	if ok {
		if err := e.release(previous, events.UnregisterReasonRebound, now); err != nil {
			return err
		}
	}
	entry := &Entry{Fingerprint: fingerprint, Address: addr, RegisteredAt: now}
	if err := e.state.BindFingerprint(entry); err != nil {
		return err
	}
	e.emit(events.RegistryRegistered{Fingerprint: fingerprint, Address: addr, Timestamp: now})
	return nil
}

func (e *Engine) release(fingerprint [32]byte, reason string, now uint64) error {
	removed, err := e.state.ReleaseFingerprint(fingerprint)
	if err != nil {
		return err
	}
	if removed == nil {
		return nil
	}
	e.emit(events.RegistryUnregistered{Fingerprint: fingerprint, Address: removed.Address, Reason: reason, Timestamp: now})
	return nil
}

// Register binds fingerprint to addr. If addr already owns another
// fingerprint that binding is released in the same step. Once any verifier
// is configured only verifiers or the owner may register.
func (e *Engine) Register(caller [20]byte, fingerprint [32]byte, addr [20]byte) error {
	const op = "registry.register"
	if e.state == nil {
		return errNilState
	}
	if common.IsZeroAddress(addr) {
		return coreerr.Invalid(op, ErrZeroAddress)
	}
	if fingerprint == ([32]byte{}) {
		return coreerr.Invalid(op, ErrZeroFingerprint)
	}
	gated, err := e.verifiersConfigured()
	if err != nil {
		return err
	}
	if gated && !e.isOwner(caller) && !e.state.HasRole(RoleVerifier, caller[:]) {
		return coreerr.Unauthorized(op, ErrNotVerifier)
	}
	existing, err := e.state.RegistryEntry(fingerprint)
	if err != nil {
		return err
	}
	if existing != nil {
		return coreerr.Conflict(op, ErrAlreadyRegistered)
	}
	return e.bind(fingerprint, addr, e.now())
}

// Unregister removes both directions of the binding. Only the bound address
// or the registry owner may unregister.
func (e *Engine) Unregister(caller [20]byte, fingerprint [32]byte) error {
	const op = "registry.unregister"
	if e.state == nil {
		return errNilState
	}
	existing, err := e.state.RegistryEntry(fingerprint)
	if err != nil {
		return err
	}
	if existing == nil {
		return coreerr.Conflict(op, ErrNotRegistered)
	}
	if caller != existing.Address && !e.isOwner(caller) {
		return coreerr.Unauthorized(op, ErrNotBoundAddress)
	}
	return e.release(fingerprint, events.UnregisterReasonRequested, e.now())
}

// BatchRegister binds pairs in order on behalf of the owner. Pairs whose
// fingerprint is already bound or whose address is zero are skipped. It
// returns the number of pairs written.
func (e *Engine) BatchRegister(caller [20]byte, fingerprints [][32]byte, addrs [][20]byte) (int, error) {
	const op = "registry.batch_register"
	if e.state == nil {
		return 0, errNilState
	}
	if !e.isOwner(caller) {
		return 0, coreerr.Unauthorized(op, ErrNotOwner)
	}
	if len(fingerprints) == 0 {
		return 0, coreerr.Invalid(op, ErrEmptyBatch)
	}
	if len(fingerprints) != len(addrs) {
		return 0, coreerr.Invalid(op, ErrBatchLengthMismatch)
	}
	now := e.now()
	written := 0
	for i, fingerprint := range fingerprints {
		addr := addrs[i]
		if common.IsZeroAddress(addr) || fingerprint == ([32]byte{}) {
			continue
		}
		existing, err := e.state.RegistryEntry(fingerprint)
		if err != nil {
			return written, err
		}
		if existing != nil {
			continue
		}
		if err := e.bind(fingerprint, addr, now); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// SetVerifier grants or revokes the verifier role. Owner only.
func (e *Engine) SetVerifier(caller, verifier [20]byte, enabled bool) error {
	const op = "registry.set_verifier"
	if e.state == nil {
		return errNilState
	}
	if !e.isOwner(caller) {
		return coreerr.Unauthorized(op, ErrNotOwner)
	}
	if common.IsZeroAddress(verifier) {
		return coreerr.Invalid(op, ErrZeroAddress)
	}
	var err error
	if enabled {
		err = e.state.SetRole(RoleVerifier, verifier[:])
	} else {
		err = e.state.RemoveRole(RoleVerifier, verifier[:])
	}
	if err != nil {
		return err
	}
	e.emit(events.RegistryVerifierUpdated{Verifier: verifier, Enabled: enabled, Timestamp: e.now()})
	return nil
}

// IsRegistered reports whether the fingerprint is bound.
func (e *Engine) IsRegistered(fingerprint [32]byte) (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	entry, err := e.state.RegistryEntry(fingerprint)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// Resolve returns the address bound to fingerprint.
func (e *Engine) Resolve(fingerprint [32]byte) ([20]byte, error) {
	entry, err := e.Entry(fingerprint)
	if err != nil {
		return [20]byte{}, err
	}
	return entry.Address, nil
}

// Lookup is Resolve without the unbound error.
func (e *Engine) Lookup(fingerprint [32]byte) ([20]byte, bool, error) {
	if e.state == nil {
		return [20]byte{}, false, errNilState
	}
	entry, err := e.state.RegistryEntry(fingerprint)
	if err != nil || entry == nil {
		return [20]byte{}, false, err
	}
	return entry.Address, true, nil
}

// Entry returns the stored registration for fingerprint.
func (e *Engine) Entry(fingerprint [32]byte) (*Entry, error) {
	if e.state == nil {
		return nil, errNilState
	}
	entry, err := e.state.RegistryEntry(fingerprint)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, coreerr.Conflict("registry.resolve", ErrNotRegistered)
	}
	return entry, nil
}

// Reverse returns the fingerprint bound to addr.
func (e *Engine) Reverse(addr [20]byte) ([32]byte, error) {
	if e.state == nil {
		return [32]byte{}, errNilState
	}
	fingerprint, ok, err := e.state.RegistryFingerprint(addr)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, coreerr.Conflict("registry.reverse", ErrAddressUnbound)
	}
	return fingerprint, nil
}

// Verifiers lists the addresses holding the verifier role.
func (e *Engine) Verifiers() ([][20]byte, error) {
	if e.state == nil {
		return nil, errNilState
	}
	members, err := e.state.RoleMembers(RoleVerifier)
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(members))
	for _, member := range members {
		var addr [20]byte
		copy(addr[:], member)
		out = append(out, addr)
	}
	return out, nil
}
