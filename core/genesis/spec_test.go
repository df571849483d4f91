package genesis

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"padipay/core/state"
	"padipay/crypto"
	"padipay/native/fees"
	"padipay/native/registry"
	"padipay/storage"
	"padipay/storage/trie"
)

func testAddr(b byte) string {
	var raw [20]byte
	copy(raw[:], bytes.Repeat([]byte{b}, 20))
	return crypto.MustNewAddress(raw).String()
}

func sampleSpec() GenesisSpec {
	chainID := uint64(42)
	return GenesisSpec{
		GenesisTime: "2024-01-01T00:00:00Z",
		ChainID:     &chainID,
		Owner:       testAddr(0x01),
		Assets: []AssetSpec{
			{Symbol: "usd", Name: "US Dollar", Decimals: 2},
			{Symbol: "NGN", Name: "Naira", Decimals: 2},
		},
		EscrowAssets: []string{"USD"},
		FeePolicy: &fees.Policy{
			FeeBasisPoints:   250,
			MinimumFee:       big.NewInt(50),
			MinPaymentAmount: big.NewInt(100),
			MaxPaymentAmount: big.NewInt(10_000_000),
			FeeRecipient:     [20]byte{0xFE},
		},
		Verifiers: []string{testAddr(0x03)},
		Alloc: map[string]map[string]string{
			testAddr(0x02): {"USD": "100000", "NGN": "5"},
		},
	}
}

func applyToFreshTrie(t *testing.T, spec *GenesisSpec) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	mgr := state.NewManager(tr)
	if err := Apply(spec, mgr); err != nil {
		t.Fatalf("apply: %v", err)
	}
	return mgr
}

func TestLoadGenesisSpecAndApply(t *testing.T) {
	spec := sampleSpec()
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	loaded, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	if loaded.ChainIDValue(1) != 42 {
		t.Fatalf("unexpected chain id %d", loaded.ChainIDValue(1))
	}
	if loaded.GenesisTimestamp().Unix() != 1704067200 {
		t.Fatalf("unexpected genesis time %v", loaded.GenesisTimestamp())
	}

	mgr := applyToFreshTrie(t, loaded)
	owner, _ := crypto.DecodeAddress(testAddr(0x01))
	if !mgr.HasRole("owner", owner.Bytes()) {
		t.Fatalf("owner role not granted")
	}
	verifier, _ := crypto.DecodeAddress(testAddr(0x03))
	if !mgr.HasRole(registry.RoleVerifier, verifier.Bytes()) {
		t.Fatalf("verifier role not granted")
	}
	assets, err := mgr.AssetList()
	if err != nil || len(assets) != 2 || assets[0] != "NGN" || assets[1] != "USD" {
		t.Fatalf("unexpected assets %v (%v)", assets, err)
	}
	supported, err := mgr.EscrowAssets()
	if err != nil || len(supported) != 1 || supported[0] != "USD" {
		t.Fatalf("unexpected escrow assets %v (%v)", supported, err)
	}
	policy, err := mgr.FeePolicy()
	if err != nil || policy == nil || policy.FeeBasisPoints != 250 {
		t.Fatalf("unexpected policy %+v (%v)", policy, err)
	}
	holder, _ := crypto.DecodeAddress(testAddr(0x02))
	bal, err := mgr.Balance(holder.Raw(), "USD")
	if err != nil || bal.Cmp(big.NewInt(100000)) != 0 {
		t.Fatalf("unexpected balance %v (%v)", bal, err)
	}
}

func TestApplyDeterministicRoot(t *testing.T) {
	first := sampleSpec()
	if err := first.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	second := sampleSpec()
	second.Assets[0], second.Assets[1] = second.Assets[1], second.Assets[0]
	if err := second.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	a := applyToFreshTrie(t, &first).Trie().Hash()
	b := applyToFreshTrie(t, &second).Trie().Hash()
	if a != b {
		t.Fatalf("genesis root depends on declaration order: %x vs %x", a, b)
	}
}

func TestGenesisSpecValidation(t *testing.T) {
	cases := map[string]func(*GenesisSpec){
		"missing time":       func(s *GenesisSpec) { s.GenesisTime = "" },
		"bad time":           func(s *GenesisSpec) { s.GenesisTime = "yesterday" },
		"missing owner":      func(s *GenesisSpec) { s.Owner = "" },
		"foreign prefix":     func(s *GenesisSpec) { s.Owner = "cosmos1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq" },
		"duplicate asset":    func(s *GenesisSpec) { s.Assets = append(s.Assets, AssetSpec{Symbol: "USD", Name: "dup"}) },
		"undeclared escrow":  func(s *GenesisSpec) { s.EscrowAssets = []string{"EUR"} },
		"bad policy":         func(s *GenesisSpec) { s.FeePolicy.FeeBasisPoints = 10_001 },
		"negative alloc":     func(s *GenesisSpec) { s.Alloc[testAddr(0x02)]["USD"] = "-1" },
		"undeclared alloc":   func(s *GenesisSpec) { s.Alloc[testAddr(0x02)]["EUR"] = "1" },
		"bad verifier":       func(s *GenesisSpec) { s.Verifiers = []string{"nope"} },
		"too many decimals":  func(s *GenesisSpec) { s.Assets[0].Decimals = 19 },
		"missing asset name": func(s *GenesisSpec) { s.Assets[1].Name = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := sampleSpec()
			mutate(&spec)
			if err := spec.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
