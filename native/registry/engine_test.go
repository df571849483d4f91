package registry

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	coreerr "padipay/core/errors"
	"padipay/core/events"
)

type mockState struct {
	forward map[[32]byte]Entry
	reverse map[[20]byte][32]byte
	roles   map[string][][]byte
}

func newMockState(owner [20]byte) *mockState {
	return &mockState{
		forward: map[[32]byte]Entry{},
		reverse: map[[20]byte][32]byte{},
		roles:   map[string][][]byte{RoleOwner: {owner[:]}},
	}
}

func (m *mockState) RegistryEntry(fp [32]byte) (*Entry, error) {
	if entry, ok := m.forward[fp]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (m *mockState) RegistryFingerprint(addr [20]byte) ([32]byte, bool, error) {
	fp, ok := m.reverse[addr]
	return fp, ok, nil
}

func (m *mockState) BindFingerprint(entry *Entry) error {
	m.forward[entry.Fingerprint] = *entry
	m.reverse[entry.Address] = entry.Fingerprint
	return nil
}

func (m *mockState) ReleaseFingerprint(fp [32]byte) (*Entry, error) {
	entry, ok := m.forward[fp]
	if !ok {
		return nil, nil
	}
	delete(m.forward, fp)
	delete(m.reverse, entry.Address)
	return &entry, nil
}

func (m *mockState) HasRole(role string, addr []byte) bool {
	for _, member := range m.roles[role] {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

func (m *mockState) SetRole(role string, addr []byte) error {
	if !m.HasRole(role, addr) {
		m.roles[role] = append(m.roles[role], append([]byte(nil), addr...))
	}
	return nil
}

func (m *mockState) RemoveRole(role string, addr []byte) error {
	members := m.roles[role][:0]
	for _, member := range m.roles[role] {
		if !bytes.Equal(member, addr) {
			members = append(members, member)
		}
	}
	m.roles[role] = members
	return nil
}

func (m *mockState) RoleMembers(role string) ([][]byte, error) {
	return m.roles[role], nil
}

var (
	owner = [20]byte{0x01}
	alice = [20]byte{0x0a}
	bob   = [20]byte{0x0b}
)

func newTestEngine(t *testing.T) (*Engine, *mockState, *events.Recorder) {
	t.Helper()
	state := newMockState(owner)
	engine := NewEngine()
	engine.SetState(state)
	rec := &events.Recorder{}
	engine.SetEmitter(rec)
	engine.SetNowFunc(func() uint64 { return 1_700_000_000 })
	return engine, state, rec
}

func TestHashCanonicalisesPhone(t *testing.T) {
	base := Hash("+2348012345678")
	for _, variant := range []string{
		" +234 801 234 5678 ",
		"+234-801-234-5678",
		"+234 (801) 234.5678",
		"+２３４８０１２３４５６７８",
	} {
		if Hash(variant) != base {
			t.Fatalf("variant %q should hash like the canonical number", variant)
		}
	}
	if Hash("2348012345678") == base {
		t.Fatalf("leading plus must be significant")
	}
	if _, err := HashStrict("+234-abc"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if _, err := HashStrict("12"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected short phone rejection, got %v", err)
	}
	strict, err := HashStrict("+234 801 234 5678")
	if err != nil || strict != base {
		t.Fatalf("strict hash mismatch: %v", err)
	}
}

func TestRegisterResolveAndReverse(t *testing.T) {
	engine, _, rec := newTestEngine(t)
	fp := Hash("+2348012345678")
	if err := engine.Register(alice, fp, alice); err != nil {
		t.Fatalf("register: %v", err)
	}
	addr, err := engine.Resolve(fp)
	if err != nil || addr != alice {
		t.Fatalf("resolve: %x %v", addr, err)
	}
	back, err := engine.Reverse(alice)
	if err != nil || back != fp {
		t.Fatalf("reverse: %x %v", back, err)
	}
	entry, err := engine.Entry(fp)
	if err != nil || entry.RegisteredAt != 1_700_000_000 {
		t.Fatalf("entry: %+v %v", entry, err)
	}
	if err := engine.Register(bob, fp, bob); !errors.Is(err, ErrAlreadyRegistered) || !errors.Is(err, coreerr.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if err := engine.Register(alice, Hash("+2348000000000"), [20]byte{}); !errors.Is(err, coreerr.ErrInvalidInput) {
		t.Fatalf("expected zero address rejection, got %v", err)
	}
	if _, err := engine.Resolve(Hash("+15550000")); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
	if _, err := engine.Reverse(bob); !errors.Is(err, ErrAddressUnbound) {
		t.Fatalf("expected unbound reverse, got %v", err)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != events.TypeRegistryRegistered {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestRegisterMovesAddressBinding(t *testing.T) {
	engine, state, rec := newTestEngine(t)
	first := Hash("+2348011111111")
	second := Hash("+2348022222222")
	if err := engine.Register(alice, first, alice); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := engine.Register(alice, second, alice); err != nil {
		t.Fatalf("register second: %v", err)
	}
	if ok, _ := engine.IsRegistered(first); ok {
		t.Fatalf("first fingerprint should have been released")
	}
	if len(state.forward) != 1 || len(state.reverse) != 1 {
		t.Fatalf("bijection broken: %d forward, %d reverse", len(state.forward), len(state.reverse))
	}
	want := []string{events.TypeRegistryRegistered, events.TypeRegistryUnregistered, events.TypeRegistryRegistered}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("unexpected events %v", got)
	}
	released := rec.Events[1].(events.RegistryUnregistered)
	if released.Reason != events.UnregisterReasonRebound || released.Fingerprint != first {
		t.Fatalf("unexpected release event %+v", released)
	}
}

func TestUnregisterAuthorization(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	fp := Hash("+2348012345678")
	if err := engine.Unregister(alice, fp); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
	if err := engine.Register(alice, fp, alice); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Unregister(bob, fp); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if err := engine.Unregister(owner, fp); err != nil {
		t.Fatalf("owner unregister: %v", err)
	}
	if ok, _ := engine.IsRegistered(fp); ok {
		t.Fatalf("fingerprint still registered")
	}
	if _, err := engine.Reverse(alice); !errors.Is(err, ErrAddressUnbound) {
		t.Fatalf("reverse entry should be removed, got %v", err)
	}
}

func TestBatchRegister(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	taken := Hash("+2348000000001")
	if err := engine.Register(bob, taken, bob); err != nil {
		t.Fatalf("register: %v", err)
	}
	fps := [][32]byte{taken, Hash("+2348000000002"), Hash("+2348000000003"), Hash("+2348000000004")}
	addrs := [][20]byte{alice, {}, {0x0c}, {0x0d}}
	if _, err := engine.BatchRegister(alice, fps, addrs); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected owner-only batch, got %v", err)
	}
	if _, err := engine.BatchRegister(owner, nil, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected empty batch error, got %v", err)
	}
	if _, err := engine.BatchRegister(owner, fps, addrs[:2]); !errors.Is(err, ErrBatchLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
	written, err := engine.BatchRegister(owner, fps, addrs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 pairs written, got %d", written)
	}
	if addr, _ := engine.Resolve(taken); addr != bob {
		t.Fatalf("bound fingerprint must be left untouched")
	}
}

func TestVerifierGate(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	verifier := [20]byte{0x77}
	if err := engine.SetVerifier(alice, verifier, true); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected owner-only verifier update, got %v", err)
	}
	if err := engine.SetVerifier(owner, verifier, true); err != nil {
		t.Fatalf("set verifier: %v", err)
	}
	fp := Hash("+2348012345678")
	if err := engine.Register(bob, fp, alice); !errors.Is(err, ErrNotVerifier) {
		t.Fatalf("expected third party to be rejected, got %v", err)
	}
	if err := engine.Register(verifier, fp, alice); err != nil {
		t.Fatalf("verifier register: %v", err)
	}
	if err := engine.Register(bob, Hash("+2348099999999"), bob); !errors.Is(err, ErrNotVerifier) {
		t.Fatalf("expected self register to be gated, got %v", err)
	}
	if ok, _ := engine.IsRegistered(Hash("+2348099999999")); ok {
		t.Fatalf("gated self register must not bind")
	}
	if err := engine.Register(owner, Hash("+2348077777777"), bob); err != nil {
		t.Fatalf("owner register: %v", err)
	}
	verifiers, _ := engine.Verifiers()
	if len(verifiers) != 1 || verifiers[0] != verifier {
		t.Fatalf("unexpected verifiers %x", verifiers)
	}
	if err := engine.SetVerifier(owner, verifier, false); err != nil {
		t.Fatalf("revoke verifier: %v", err)
	}
	if err := engine.Register(bob, Hash("+2348088888888"), [20]byte{0x0e}); err != nil {
		t.Fatalf("registration should be permissionless without verifiers: %v", err)
	}
}

func TestBijectionHoldsAcrossRandomOperations(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	rng := rand.New(rand.NewSource(42))
	phones := make([][32]byte, 8)
	for i := range phones {
		phones[i] = Hash("+23480000000" + string(rune('0'+i)))
	}
	addrs := make([][20]byte, 6)
	for i := range addrs {
		addrs[i] = [20]byte{0x40, byte(i + 1)}
	}
	for i := 0; i < 500; i++ {
		fp := phones[rng.Intn(len(phones))]
		addr := addrs[rng.Intn(len(addrs))]
		if rng.Intn(3) == 0 {
			_ = engine.Unregister(owner, fp)
		} else {
			_ = engine.Register(addr, fp, addr)
		}
		if len(state.forward) != len(state.reverse) {
			t.Fatalf("step %d: forward %d reverse %d", i, len(state.forward), len(state.reverse))
		}
		for fp, entry := range state.forward {
			if state.reverse[entry.Address] != fp {
				t.Fatalf("step %d: reverse entry missing for %x", i, entry.Address)
			}
		}
	}
}
