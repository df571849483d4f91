package escrow

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
	"testing"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/common"
)

type mockState struct {
	balances map[string]*big.Int
	assets   map[string]bool
	owner    [20]byte
}

func (m *mockState) EscrowBalance(fp [32]byte, asset string) (*big.Int, error) {
	if v, ok := m.balances[string(fp[:])+asset]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetEscrowBalance(fp [32]byte, asset string, amount *big.Int) error {
	m.balances[string(fp[:])+asset] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) EscrowAssets() ([]string, error) {
	out := []string{}
	for asset, ok := range m.assets {
		if ok {
			out = append(out, asset)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockState) SetEscrowAsset(asset string, supported bool) error {
	m.assets[asset] = supported
	return nil
}

func (m *mockState) HasRole(role string, addr []byte) bool {
	return role == RoleOwner && bytes.Equal(addr, m.owner[:])
}

type transfer struct {
	from, to [20]byte
	asset    string
	amount   *big.Int
}

type mockLedger struct {
	known     map[string]bool
	transfers []transfer
}

func (m *mockLedger) AssetExists(symbol string) bool { return m.known[symbol] }

func (m *mockLedger) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	m.transfers = append(m.transfers, transfer{from, to, symbol, new(big.Int).Set(amount)})
	return nil
}

type mockDirectory map[[32]byte][20]byte

func (m mockDirectory) Lookup(fp [32]byte) ([20]byte, bool, error) {
	addr, ok := m[fp]
	return addr, ok, nil
}

var (
	owner    = [20]byte{0x01}
	alice    = [20]byte{0x0a}
	bob      = [20]byte{0x0b}
	aliceFP  = [32]byte{0xa1}
	payments = common.ModuleAddress(common.ModulePayments)
)

type fixture struct {
	engine    *Engine
	state     *mockState
	ledger    *mockLedger
	directory mockDirectory
	rec       *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine:    NewEngine(),
		state:     &mockState{balances: map[string]*big.Int{}, assets: map[string]bool{}, owner: owner},
		ledger:    &mockLedger{known: map[string]bool{"NGN": true, "USD": true}},
		directory: mockDirectory{},
		rec:       &events.Recorder{},
	}
	f.engine.SetState(f.state)
	f.engine.SetLedger(f.ledger)
	f.engine.SetDirectory(f.directory)
	f.engine.SetEmitter(f.rec)
	f.engine.SetNowFunc(func() uint64 { return 42 })
	if err := f.engine.AddSupportedAsset(owner, "ngn"); err != nil {
		t.Fatalf("add asset: %v", err)
	}
	return f
}

func TestSupportedAssets(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.AddSupportedAsset(alice, "USD"); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected owner-only add, got %v", err)
	}
	if err := f.engine.AddSupportedAsset(owner, "EUR"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected unknown asset, got %v", err)
	}
	if err := f.engine.AddSupportedAsset(owner, "NGN"); !errors.Is(err, ErrAssetSupported) {
		t.Fatalf("expected already supported, got %v", err)
	}
	if err := f.engine.RemoveSupportedAsset(owner, "USD"); !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("expected unsupported removal conflict, got %v", err)
	}
	if err := f.engine.RemoveSupportedAsset(owner, "NGN"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assets, _ := f.engine.SupportedAssets()
	if len(assets) != 0 {
		t.Fatalf("expected no supported assets, got %v", assets)
	}
}

func TestDepositOnlyFromPaymentModule(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Deposit(alice, aliceFP, "NGN", big.NewInt(10)); !errors.Is(err, ErrNotDepositor) {
		t.Fatalf("expected depositor check, got %v", err)
	}
	if err := f.engine.Deposit(payments, aliceFP, "USD", big.NewInt(10)); !errors.Is(err, coreerr.ErrInvalidInput) {
		t.Fatalf("expected unsupported asset rejection, got %v", err)
	}
	if err := f.engine.Deposit(payments, aliceFP, "NGN", big.NewInt(0)); !errors.Is(err, coreerr.ErrInvalidInput) {
		t.Fatalf("expected zero amount rejection, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := f.engine.Deposit(payments, aliceFP, "NGN", big.NewInt(9750)); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	amount, _ := f.engine.ClaimableAmount(aliceFP, "ngn")
	if amount.Int64() != 19_500 {
		t.Fatalf("unexpected claimable %s", amount)
	}
}

func TestClaimReleasesBalancesOnce(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.AddSupportedAsset(owner, "USD"); err != nil {
		t.Fatalf("add usd: %v", err)
	}
	if err := f.engine.Deposit(payments, aliceFP, "NGN", big.NewInt(9750)); err != nil {
		t.Fatalf("deposit ngn: %v", err)
	}
	if err := f.engine.Deposit(payments, aliceFP, "USD", big.NewInt(3)); err != nil {
		t.Fatalf("deposit usd: %v", err)
	}

	if _, err := f.engine.Claim(alice, aliceFP, alice); !errors.Is(err, ErrFingerprintNotMine) || !errors.Is(err, coreerr.ErrStateConflict) {
		t.Fatalf("expected unregistered claim to conflict, got %v", err)
	}
	f.directory[aliceFP] = alice
	if _, err := f.engine.Claim(bob, aliceFP, bob); !errors.Is(err, ErrFingerprintNotMine) {
		t.Fatalf("expected mismatched address to conflict, got %v", err)
	}
	if _, err := f.engine.Claim(bob, aliceFP, alice); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected third-party claim to be rejected, got %v", err)
	}

	claims, err := f.engine.Claim(alice, aliceFP, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claims) != 2 || claims[0].Asset != "NGN" || claims[0].Amount.Int64() != 9750 || claims[1].Amount.Int64() != 3 {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(f.ledger.transfers) != 2 {
		t.Fatalf("expected two transfers, got %d", len(f.ledger.transfers))
	}
	first := f.ledger.transfers[0]
	if first.from != f.engine.VaultAddress() || first.to != alice || first.amount.Int64() != 9750 {
		t.Fatalf("unexpected transfer %+v", first)
	}
	if remaining, _ := f.engine.ClaimableAmount(aliceFP, "NGN"); remaining.Sign() != 0 {
		t.Fatalf("balance not cleared: %s", remaining)
	}

	if _, err := f.engine.Claim(alice, aliceFP, alice); !errors.Is(err, ErrZeroBalance) {
		t.Fatalf("expected second claim to fail with zero balance, got %v", err)
	}
	claimedEvents := 0
	for _, evt := range f.rec.Events {
		if evt.EventType() == events.TypeEscrowClaimed {
			claimedEvents++
		}
	}
	if claimedEvents != 2 {
		t.Fatalf("expected one claimed event per asset, got %d", claimedEvents)
	}
}

func TestClaimSkipsUnsupportedAssetBalances(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Deposit(payments, aliceFP, "NGN", big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.RemoveSupportedAsset(owner, "NGN"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	f.directory[aliceFP] = alice
	if _, err := f.engine.Claim(alice, aliceFP, alice); !errors.Is(err, ErrZeroBalance) {
		t.Fatalf("expected zero balance while asset unsupported, got %v", err)
	}
	if err := f.engine.AddSupportedAsset(owner, "NGN"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	claims, err := f.engine.Claim(alice, aliceFP, alice)
	if err != nil || Total(claims).Int64() != 100 {
		t.Fatalf("expected balance to be claimable again: %v %+v", err, claims)
	}
}
