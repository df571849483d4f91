package wallet

import (
	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/common"
)

// Deploy creates the wallet for a fingerprint. It is idempotent: later calls
// return the same address and report created=false without touching state.
// Deployment is open to anyone; caller is recorded in the deploy event.
func (e *Engine) Deploy(caller [20]byte, fingerprint [32]byte) ([20]byte, bool, error) {
	const op = "wallet.deploy"
	if e.state == nil {
		return [20]byte{}, false, errNilState
	}
	if fingerprint == ([32]byte{}) {
		return [20]byte{}, false, coreerr.Invalid(op, ErrZeroFingerprint)
	}
	addr := e.ComputeAddress(fingerprint)
	existing, err := e.state.WalletState(addr)
	if err != nil {
		return [20]byte{}, false, err
	}
	if existing != nil {
		return addr, false, nil
	}
	st := &State{
		Address:     addr,
		Owner:       e.provisioner,
		EntryPoint:  e.entryPoint,
		Fingerprint: fingerprint,
		DeployedAt:  e.now(),
	}
	if err := e.state.PutWalletState(st); err != nil {
		return [20]byte{}, false, err
	}
	e.emit(events.WalletDeployed{
		Wallet:      addr,
		Fingerprint: fingerprint,
		Owner:       st.Owner,
		EntryPoint:  st.EntryPoint,
		Deployer:    caller,
		Timestamp:   st.DeployedAt,
	})
	return addr, true, nil
}

// AssignOwner hands a freshly deployed wallet to its real owner. It succeeds
// only while the owner is still the provisioner placeholder.
func (e *Engine) AssignOwner(caller [20]byte, fingerprint [32]byte, owner [20]byte) ([20]byte, error) {
	const op = "wallet.assign_owner"
	if e.state == nil {
		return [20]byte{}, errNilState
	}
	if !e.state.HasRole(RoleOwner, caller[:]) {
		return [20]byte{}, coreerr.Unauthorized(op, ErrNotProvisioner)
	}
	if common.IsZeroAddress(owner) {
		return [20]byte{}, coreerr.Invalid(op, ErrZeroOwner)
	}
	addr := e.ComputeAddress(fingerprint)
	st, err := e.state.WalletState(addr)
	if err != nil {
		return [20]byte{}, err
	}
	if st == nil {
		return [20]byte{}, coreerr.Conflict(op, ErrWalletNotDeployed)
	}
	if st.Owner != e.provisioner {
		return [20]byte{}, coreerr.Conflict(op, ErrOwnerAssigned)
	}
	previous := st.Owner
	st.Owner = owner
	if err := e.state.PutWalletState(st); err != nil {
		return [20]byte{}, err
	}
	e.emit(events.WalletOwnerAssigned{Wallet: addr, PreviousOwner: previous, Owner: owner, Timestamp: e.now()})
	return addr, nil
}
