package payments

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	coreerr "padipay/core/errors"
	"padipay/core/events"
	"padipay/native/common"
	"padipay/native/fees"
)

type mockState struct {
	nextID  uint64
	records map[uint64]*Record
	pending map[[32]byte][]uint64
	stats   *Stats
	policy  *fees.Policy
	quotas  map[[20]byte]*common.QuotaNow
	paused  map[string]bool
	owner   [20]byte
}

func newMockState(owner [20]byte) *mockState {
	return &mockState{
		records: map[uint64]*Record{},
		pending: map[[32]byte][]uint64{},
		stats:   &Stats{TotalVolume: big.NewInt(0), TotalFees: big.NewInt(0)},
		quotas:  map[[20]byte]*common.QuotaNow{},
		paused:  map[string]bool{},
		owner:   owner,
	}
}

func (m *mockState) NextPaymentID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockState) PutPayment(r *Record) error {
	m.records[r.ID] = r.Clone()
	return nil
}

func (m *mockState) Payment(id uint64) (*Record, error) {
	return m.records[id].Clone(), nil
}

func (m *mockState) PendingPayments(fp [32]byte) ([]uint64, error) {
	return append([]uint64(nil), m.pending[fp]...), nil
}

func (m *mockState) SetPendingPayments(fp [32]byte, ids []uint64) error {
	m.pending[fp] = append([]uint64(nil), ids...)
	return nil
}

func (m *mockState) PaymentStats() (*Stats, error)     { return m.stats.Clone(), nil }
func (m *mockState) SetPaymentStats(s *Stats) error    { m.stats = s.Clone(); return nil }
func (m *mockState) FeePolicy() (*fees.Policy, error)  { return m.policy, nil }
func (m *mockState) SetFeePolicy(p *fees.Policy) error { m.policy = p; return nil }
func (m *mockState) IsPaused(module string) bool       { return m.paused[module] }
func (m *mockState) SetPaused(module string, p bool) error {
	m.paused[module] = p
	return nil
}

func (m *mockState) SenderQuota(addr [20]byte) (*common.QuotaNow, error) {
	return m.quotas[addr], nil
}

func (m *mockState) SetSenderQuota(addr [20]byte, usage *common.QuotaNow) error {
	m.quotas[addr] = usage
	return nil
}

func (m *mockState) HasRole(role string, addr []byte) bool {
	return role == RoleOwner && bytes.Equal(addr, m.owner[:])
}

type transfer struct {
	from, to [20]byte
	amount   int64
}

// mockLedger keeps single-asset balances and records transfers in order.
type mockLedger struct {
	balances   map[[20]byte]int64
	allowances map[[20]byte]int64
	transfers  []transfer
}

func (m *mockLedger) Balance(addr [20]byte, _ string) (*big.Int, error) {
	return big.NewInt(m.balances[addr]), nil
}

func (m *mockLedger) Allowance(owner, _ [20]byte, _ string) (*big.Int, error) {
	return big.NewInt(m.allowances[owner]), nil
}

func (m *mockLedger) Transfer(from, to [20]byte, _ string, amount *big.Int) error {
	if m.balances[from] < amount.Int64() {
		return errors.New("insufficient")
	}
	m.balances[from] -= amount.Int64()
	m.balances[to] += amount.Int64()
	m.transfers = append(m.transfers, transfer{from, to, amount.Int64()})
	return nil
}

func (m *mockLedger) TransferFrom(_, owner, to [20]byte, symbol string, amount *big.Int) error {
	m.allowances[owner] -= amount.Int64()
	return m.Transfer(owner, to, symbol, amount)
}

type mockEscrow struct {
	vault    [20]byte
	deposits map[[32]byte]int64
}

func (m *mockEscrow) IsSupported(asset string) (bool, error) { return asset == "NGN", nil }
func (m *mockEscrow) VaultAddress() [20]byte                 { return m.vault }

func (m *mockEscrow) Deposit(caller [20]byte, fp [32]byte, _ string, amount *big.Int) error {
	if caller != common.ModuleAddress(common.ModulePayments) {
		return errors.New("not depositor")
	}
	m.deposits[fp] += amount.Int64()
	return nil
}

type mockDirectory map[[32]byte][20]byte

func (m mockDirectory) Lookup(fp [32]byte) ([20]byte, bool, error) {
	addr, ok := m[fp]
	return addr, ok, nil
}

var (
	owner        = [20]byte{0x01}
	sender       = [20]byte{0x5e}
	recipient    = [20]byte{0x7e}
	feeRecipient = [20]byte{0xfe}
	registeredFP = [32]byte{0x11}
	unknownFP    = [32]byte{0x22}
)

type fixture struct {
	engine *Engine
	state  *mockState
	ledger *mockLedger
	escrow *mockEscrow
	rec    *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine: NewEngine(),
		state:  newMockState(owner),
		ledger: &mockLedger{
			balances:   map[[20]byte]int64{sender: 1_000_000},
			allowances: map[[20]byte]int64{sender: 1_000_000},
		},
		escrow: &mockEscrow{vault: common.ModuleAddress(common.ModuleEscrow), deposits: map[[32]byte]int64{}},
		rec:    &events.Recorder{},
	}
	f.engine.SetState(f.state)
	f.engine.SetLedger(f.ledger)
	f.engine.SetEscrow(f.escrow)
	f.engine.SetDirectory(mockDirectory{registeredFP: recipient})
	f.engine.SetEmitter(f.rec)
	f.engine.SetNowFunc(func() uint64 { return 1_700_000_000 })
	policy := fees.Policy{
		FeeBasisPoints:   200,
		MinimumFee:       big.NewInt(50),
		MinPaymentAmount: big.NewInt(100),
		MaxPaymentAmount: big.NewInt(500_000),
		FeeRecipient:     feeRecipient,
	}
	if err := f.engine.SetFeePolicy(owner, policy); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	return f
}

func TestSendPaymentDeliversToRegisteredRecipient(t *testing.T) {
	f := newFixture(t)
	record, err := f.engine.SendPayment(sender, registeredFP, "ngn", big.NewInt(100_000), "lunch")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if record.ID != 1 || record.IsEscrowed || !record.Claimed || record.Recipient != recipient {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.FeeAmount.Int64() != 2000 || record.NetAmount.Int64() != 98_000 {
		t.Fatalf("unexpected amounts fee=%s net=%s", record.FeeAmount, record.NetAmount)
	}
	if f.ledger.balances[recipient] != 98_000 || f.ledger.balances[feeRecipient] != 2000 {
		t.Fatalf("unexpected balances %+v", f.ledger.balances)
	}
	if f.ledger.balances[f.engine.ModuleAddress()] != 0 {
		t.Fatalf("module account must not retain funds")
	}
	module := f.engine.ModuleAddress()
	want := []transfer{{sender, module, 100_000}, {module, feeRecipient, 2000}, {module, recipient, 98_000}}
	if len(f.ledger.transfers) != len(want) {
		t.Fatalf("unexpected transfers %+v", f.ledger.transfers)
	}
	for i := range want {
		if f.ledger.transfers[i] != want[i] {
			t.Fatalf("transfer %d: got %+v want %+v", i, f.ledger.transfers[i], want[i])
		}
	}
	stats, _ := f.engine.GetPlatformStats()
	if stats.TotalSent != 1 || stats.TotalClaimed != 1 || stats.TotalVolume.Int64() != 100_000 || stats.TotalFees.Int64() != 2000 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	last := f.rec.Events[len(f.rec.Events)-1].(events.PaymentSent)
	if last.ID != 1 || last.Memo != "lunch" || last.Timestamp != 1_700_000_000 {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestSendPaymentEscrowsForUnknownFingerprint(t *testing.T) {
	f := newFixture(t)
	record, err := f.engine.SendPayment(sender, unknownFP, "NGN", big.NewInt(10_000), "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !record.IsEscrowed || record.Claimed {
		t.Fatalf("expected escrowed unclaimed record, got %+v", record)
	}
	if f.escrow.deposits[unknownFP] != 9800 || f.ledger.balances[f.escrow.vault] != 9800 {
		t.Fatalf("escrow not funded: deposits=%d vault=%d", f.escrow.deposits[unknownFP], f.ledger.balances[f.escrow.vault])
	}
	pending, _ := f.engine.PendingPayments(unknownFP)
	if len(pending) != 1 || pending[0].ID != record.ID {
		t.Fatalf("unexpected pending %+v", pending)
	}
	stats, _ := f.engine.GetPlatformStats()
	if stats.TotalClaimed != 0 {
		t.Fatalf("escrowed payment must not count as claimed")
	}

	flipped, err := f.engine.MarkClaimed(unknownFP, []string{"NGN"})
	if err != nil || flipped != 1 {
		t.Fatalf("mark claimed: %d %v", flipped, err)
	}
	stored, _ := f.engine.GetPayment(record.ID)
	if !stored.Claimed {
		t.Fatalf("record not marked claimed")
	}
	stats, _ = f.engine.GetPlatformStats()
	if stats.TotalClaimed != 1 {
		t.Fatalf("unexpected claimed count %d", stats.TotalClaimed)
	}
	if flipped, _ := f.engine.MarkClaimed(unknownFP, []string{"NGN"}); flipped != 0 {
		t.Fatalf("claimed flag must flip once, flipped %d", flipped)
	}
}

func TestSendPaymentChecks(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		from  [20]byte
		fp    [32]byte
		asset string
		gross int64
		memo  string
		want  error
	}{
		{"unsupported asset", sender, registeredFP, "USD", 1000, "", ErrUnsupportedAsset},
		{"memo too long", sender, registeredFP, "NGN", 1000, strings.Repeat("x", MaxMemoLength+1), ErrMemoTooLong},
		{"gross equals minimum fee", sender, registeredFP, "NGN", 50, "", coreerr.ErrBoundsViolation},
		{"above maximum", sender, registeredFP, "NGN", 500_001, "", fees.ErrAboveMaximum},
		{"no balance", [20]byte{0x99}, registeredFP, "NGN", 1000, "", ErrInsufficientBal},
		{"zero fingerprint", sender, [32]byte{}, "NGN", 1000, "", ErrZeroFingerprint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.SendPayment(tc.from, tc.fp, tc.asset, big.NewInt(tc.gross), tc.memo); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	f.ledger.allowances[sender] = 10
	if _, err := f.engine.SendPayment(sender, registeredFP, "NGN", big.NewInt(1000), ""); !errors.Is(err, ErrInsufficientAllow) || !errors.Is(err, coreerr.ErrInsufficientFunds) {
		t.Fatalf("expected allowance shortfall, got %v", err)
	}
	if len(f.ledger.transfers) != 0 || f.state.nextID != 0 {
		t.Fatalf("failed checks must not touch state")
	}
}

func TestSendPaymentMemoAtLimit(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.SendPayment(sender, registeredFP, "NGN", big.NewInt(1000), strings.Repeat("m", MaxMemoLength)); err != nil {
		t.Fatalf("memo of exactly %d bytes should be accepted: %v", MaxMemoLength, err)
	}
}

func TestConservationAcrossPayments(t *testing.T) {
	f := newFixture(t)
	grosses := []int64{100, 999, 2500, 10_000, 123_456}
	var volume, feeSum int64
	for i, gross := range grosses {
		fp := registeredFP
		if i%2 == 1 {
			fp = unknownFP
		}
		record, err := f.engine.SendPayment(sender, fp, "NGN", big.NewInt(gross), "")
		if err != nil {
			t.Fatalf("send %d: %v", gross, err)
		}
		volume += record.GrossAmount.Int64()
		feeSum += record.FeeAmount.Int64()
		if record.FeeAmount.Int64()+record.NetAmount.Int64() != gross {
			t.Fatalf("fee + net != gross for %d", gross)
		}
	}
	stats, _ := f.engine.GetPlatformStats()
	if stats.TotalVolume.Int64() != volume || stats.TotalFees.Int64() != feeSum {
		t.Fatalf("stats volume=%s fees=%s, want %d %d", stats.TotalVolume, stats.TotalFees, volume, feeSum)
	}
	if stats.TotalSent != uint64(len(grosses)) {
		t.Fatalf("unexpected sent count %d", stats.TotalSent)
	}
}

func TestPauseAndPolicyAdmin(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Pause(sender); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected owner-only pause, got %v", err)
	}
	if err := f.engine.Pause(owner); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.engine.Pause(owner); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("expected already paused, got %v", err)
	}
	if _, err := f.engine.SendPayment(sender, registeredFP, "NGN", big.NewInt(1000), ""); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := f.engine.Unpause(owner); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if f.engine.Paused() {
		t.Fatalf("expected payments to be unpaused")
	}

	bad := fees.Policy{FeeBasisPoints: 20_000}
	if err := f.engine.SetFeePolicy(owner, bad); !errors.Is(err, coreerr.ErrInvalidInput) {
		t.Fatalf("expected invalid policy, got %v", err)
	}
	current, _ := f.engine.FeePolicy()
	if err := f.engine.SetFeePolicy(sender, *current); !errors.Is(err, coreerr.ErrNotAuthorized) {
		t.Fatalf("expected owner-only policy update, got %v", err)
	}
}

func TestSenderQuota(t *testing.T) {
	f := newFixture(t)
	f.engine.SetQuota(common.Quota{MaxRequestsPerEpoch: 2, EpochSeconds: 3600})
	for i := 0; i < 2; i++ {
		if _, err := f.engine.SendPayment(sender, registeredFP, "NGN", big.NewInt(1000), ""); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if _, err := f.engine.SendPayment(sender, registeredFP, "NGN", big.NewInt(1000), ""); !errors.Is(err, common.ErrQuotaRequestsExceeded) || !errors.Is(err, coreerr.ErrBoundsViolation) {
		t.Fatalf("expected quota rejection, got %v", err)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.GetPayment(99); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
