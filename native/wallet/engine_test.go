package wallet

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/crypto"
)

type mockState struct {
	wallets map[[20]byte]*State
	owner   [20]byte
}

func newMockState(owner [20]byte) *mockState {
	return &mockState{wallets: make(map[[20]byte]*State), owner: owner}
}

func (m *mockState) WalletState(addr [20]byte) (*State, error) {
	st, ok := m.wallets[addr]
	if !ok {
		return nil, nil
	}
	clone := *st
	return &clone, nil
}

func (m *mockState) PutWalletState(st *State) error {
	clone := *st
	m.wallets[st.Address] = &clone
	return nil
}

func (m *mockState) HasRole(role string, addr []byte) bool {
	return role == RoleOwner && bytes.Equal(addr, m.owner[:])
}

type dispatched struct {
	from [20]byte
	call Call
}

type recordingDispatcher struct {
	calls  []dispatched
	failOn string
}

func (d *recordingDispatcher) Dispatch(from [20]byte, call Call) error {
	if call.Method == d.failOn {
		return errors.New("dispatch failed")
	}
	d.calls = append(d.calls, dispatched{from: from, call: call})
	return nil
}

type fixture struct {
	engine     *Engine
	state      *mockState
	dispatcher *recordingDispatcher
	recorder   *events.Recorder
	key        *crypto.PrivateKey
	ownerAddr  [20]byte
	admin      [20]byte
	wallet     [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	admin := [20]byte{0xAD}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	f := &fixture{
		engine:     NewEngine(7),
		state:      newMockState(admin),
		dispatcher: &recordingDispatcher{},
		recorder:   &events.Recorder{},
		key:        key,
		ownerAddr:  key.PubKey().Address().Raw(),
		admin:      admin,
	}
	f.engine.SetState(f.state)
	f.engine.SetDispatcher(f.dispatcher)
	f.engine.SetEmitter(f.recorder)
	f.engine.SetNowFunc(func() uint64 { return 1_700_000_000 })

	fp := [32]byte{0x01}
	addr, created, err := f.engine.Deploy([20]byte{0x99}, fp)
	if err != nil || !created {
		t.Fatalf("deploy: created=%v err=%v", created, err)
	}
	if _, err := f.engine.AssignOwner(admin, fp, f.ownerAddr); err != nil {
		t.Fatalf("assign owner: %v", err)
	}
	f.wallet = addr
	return f
}

func (f *fixture) signedOp(t *testing.T, nonce uint64, calls ...Call) *UserOperation {
	t.Helper()
	op := &UserOperation{Sender: f.wallet, Nonce: nonce, Calls: calls}
	digest, err := op.Hash(f.engine.ChainID(), f.engine.EntryPointAddress())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	sig, err := f.key.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	op.Signature = sig
	return op
}

func transferCall(amount int64) Call {
	return Call{Method: MethodTransfer, To: [20]byte{0x22}, Asset: "USD", Amount: big.NewInt(amount)}
}

func TestComputeAddressDeterministic(t *testing.T) {
	engine := NewEngine(1)
	fp := [32]byte{0x42}
	a := engine.ComputeAddress(fp)
	b := engine.ComputeAddress(fp)
	if a != b {
		t.Fatalf("address not deterministic: %x vs %x", a, b)
	}
	if a == engine.ComputeAddress([32]byte{0x43}) {
		t.Fatalf("different fingerprints must give different addresses")
	}
	code := ProxyInitCode(engine.ImplementationAddress())
	if len(code) != 55 {
		t.Fatalf("unexpected init code length %d", len(code))
	}
}

func TestDeployIdempotent(t *testing.T) {
	state := newMockState([20]byte{0xAD})
	rec := &events.Recorder{}
	engine := NewEngine(1)
	engine.SetState(state)
	engine.SetEmitter(rec)
	fp := [32]byte{0x05}

	addr, created, err := engine.Deploy([20]byte{0x01}, fp)
	if err != nil || !created {
		t.Fatalf("first deploy: created=%v err=%v", created, err)
	}
	if addr != engine.ComputeAddress(fp) {
		t.Fatalf("deployed address differs from computed address")
	}
	st, _ := engine.WalletState(addr)
	if st.Owner != engine.ProvisionerAddress() || st.Nonce != 0 || st.EntryPoint != engine.EntryPointAddress() {
		t.Fatalf("unexpected initial state %+v", st)
	}
	again, created, err := engine.Deploy([20]byte{0x02}, fp)
	if err != nil || created || again != addr {
		t.Fatalf("second deploy: addr=%x created=%v err=%v", again, created, err)
	}
	if len(rec.Events) != 1 {
		t.Fatalf("expected a single deployed event, got %d", len(rec.Events))
	}
	deployed, ok := rec.Events[0].(events.WalletDeployed)
	if !ok || deployed.Deployer != ([20]byte{0x01}) {
		t.Fatalf("expected deployer 0x01 on deploy event, got %+v", rec.Events[0])
	}
	if _, _, err := engine.Deploy([20]byte{0x01}, [32]byte{}); !errors.Is(err, coreerr.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero fingerprint, got %v", err)
	}
}

func TestAssignOwnerRules(t *testing.T) {
	f := newFixture(t)
	fp := [32]byte{0x01}
	if _, err := f.engine.AssignOwner(f.admin, fp, [20]byte{0x77}); !errors.Is(err, ErrOwnerAssigned) || !errors.Is(err, coreerr.ErrStateConflict) {
		t.Fatalf("expected owner already assigned conflict, got %v", err)
	}
	if _, err := f.engine.AssignOwner([20]byte{0x01}, [32]byte{0x02}, [20]byte{0x77}); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if _, err := f.engine.AssignOwner(f.admin, [32]byte{0x02}, [20]byte{0x77}); !errors.Is(err, ErrWalletNotDeployed) {
		t.Fatalf("expected not deployed, got %v", err)
	}
	if _, err := f.engine.AssignOwner(f.admin, fp, [20]byte{}); !errors.Is(err, coreerr.ErrInvalidInput) {
		t.Fatalf("expected invalid zero owner, got %v", err)
	}
}

func TestHandleOpExecutesCalls(t *testing.T) {
	f := newFixture(t)
	op := f.signedOp(t, 0, transferCall(100), Call{Method: MethodClaim, Fingerprint: [32]byte{0x01}})

	receipt, err := f.engine.HandleOp(op)
	if err != nil {
		t.Fatalf("handle op: %v", err)
	}
	if receipt.Calls != 2 || receipt.Nonce != 0 || receipt.Sender != f.wallet {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if len(f.dispatcher.calls) != 2 {
		t.Fatalf("expected 2 dispatched calls, got %d", len(f.dispatcher.calls))
	}
	for _, d := range f.dispatcher.calls {
		if d.from != f.wallet {
			t.Fatalf("call dispatched from %x, want wallet %x", d.from, f.wallet)
		}
	}
	nonce, err := f.engine.Nonce(f.wallet)
	if err != nil || nonce != 1 {
		t.Fatalf("nonce = %d, %v; want 1", nonce, err)
	}
	last := f.recorder.Events[len(f.recorder.Events)-1]
	if last.EventType() != events.TypeWalletOpExecuted {
		t.Fatalf("expected op executed event, got %s", last.EventType())
	}
}

func TestHandleOpRejectsWrongNonce(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.HandleOp(f.signedOp(t, 0, transferCall(1))); err != nil {
		t.Fatalf("first op: %v", err)
	}
	replay := f.signedOp(t, 0, transferCall(1))
	_, err := f.engine.HandleOp(replay)
	if !errors.Is(err, ErrNonceMismatch) || !errors.Is(err, coreerr.ErrStateConflict) {
		t.Fatalf("expected nonce conflict, got %v", err)
	}
	skipped := f.signedOp(t, 5, transferCall(1))
	if _, err := f.engine.HandleOp(skipped); !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("expected nonce mismatch for future nonce, got %v", err)
	}
	if nonce, _ := f.engine.Nonce(f.wallet); nonce != 1 {
		t.Fatalf("nonce changed after rejected ops: %d", nonce)
	}
}

func TestHandleOpRejectsForeignSigner(t *testing.T) {
	f := newFixture(t)
	op := f.signedOp(t, 0, transferCall(1))
	other, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest, _ := op.Hash(f.engine.ChainID(), f.engine.EntryPointAddress())
	op.Signature, _ = other.Sign(digest[:])
	if _, err := f.engine.HandleOp(op); !errors.Is(err, ErrBadSignature) || !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected bad signature, got %v", err)
	}

	tampered := f.signedOp(t, 0, transferCall(1))
	tampered.Calls[0].Amount = big.NewInt(1_000_000)
	if _, err := f.engine.HandleOp(tampered); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected tampered op to fail, got %v", err)
	}

	short := f.signedOp(t, 0, transferCall(1))
	short.Signature = short.Signature[:64]
	if _, err := f.engine.HandleOp(short); !errors.Is(err, ErrBadSignatureLen) {
		t.Fatalf("expected signature length error, got %v", err)
	}
}

func TestHandleOpSignatureBoundToChain(t *testing.T) {
	f := newFixture(t)
	op := f.signedOp(t, 0, transferCall(1))
	other := NewEngine(8)
	other.SetState(f.state)
	other.SetDispatcher(f.dispatcher)
	if _, err := other.HandleOp(op); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected signature from another chain to fail, got %v", err)
	}
}

func TestValidateAndExecuteRequireEntryPoint(t *testing.T) {
	f := newFixture(t)
	op := f.signedOp(t, 0, transferCall(1))
	if _, err := f.engine.ValidateUserOp([20]byte{0x01}, op); !errors.Is(err, ErrNotEntryPoint) {
		t.Fatalf("expected entry point error, got %v", err)
	}
	if err := f.engine.Execute([20]byte{0x01}, op); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if len(f.dispatcher.calls) != 0 {
		t.Fatalf("no calls expected")
	}
}

func TestHandleOpCallFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.failOn = MethodSendPayment
	op := f.signedOp(t, 0, transferCall(1), Call{Method: MethodSendPayment, Asset: "USD", Amount: big.NewInt(5)})
	if _, err := f.engine.HandleOp(op); err == nil {
		t.Fatalf("expected failing call to fail the operation")
	}
	unknown := f.signedOp(t, 1, Call{Method: "selfdestruct"})
	if _, err := f.engine.HandleOp(unknown); err == nil {
		t.Fatalf("expected unknown method to be rejected")
	}
}

func TestHandleOpCallLimits(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.HandleOp(&UserOperation{Sender: f.wallet}); !errors.Is(err, ErrNoCalls) {
		t.Fatalf("expected no calls error, got %v", err)
	}
	calls := make([]Call, MaxCallsPerOp+1)
	for i := range calls {
		calls[i] = transferCall(1)
	}
	if _, err := f.engine.HandleOp(f.signedOp(t, 0, calls...)); !errors.Is(err, coreerr.ErrBoundsViolation) {
		t.Fatalf("expected bounds violation, got %v", err)
	}
}

func TestHandleOpSponsorship(t *testing.T) {
	f := newFixture(t)
	paymaster := [20]byte{0x50}
	op := &UserOperation{Sender: f.wallet, Nonce: 0, Calls: []Call{transferCall(1)}, Paymaster: paymaster}
	digest, _ := op.Hash(f.engine.ChainID(), f.engine.EntryPointAddress())
	op.Signature, _ = f.key.Sign(digest[:])

	if _, err := f.engine.HandleOp(op); !errors.Is(err, ErrNoSponsor) {
		t.Fatalf("expected missing sponsor error, got %v", err)
	}
	f.engine.SetSponsor(NewAllowlist([20]byte{0x51}))
	// The rejected attempt above consumed the nonce in the mock; the ledger
	// discards it on failure.
	f.state.wallets[f.wallet].Nonce = 0
	if _, err := f.engine.HandleOp(op); !errors.Is(err, ErrSponsorRejected) {
		t.Fatalf("expected sponsor rejection, got %v", err)
	}
	f.engine.SetSponsor(NewAllowlist(paymaster))
	f.state.wallets[f.wallet].Nonce = 0
	receipt, err := f.engine.HandleOp(op)
	if err != nil {
		t.Fatalf("sponsored op: %v", err)
	}
	if receipt.Sponsor != paymaster {
		t.Fatalf("receipt sponsor = %x, want %x", receipt.Sponsor, paymaster)
	}
}
