package main

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"padipay/config"
	"padipay/crypto"
	"padipay/observability/logging"
)

func writeNodeConfig(t *testing.T, dir string) string {
	t.Helper()
	owner := crypto.MustNewAddress([20]byte{0x01}).String()
	sender := crypto.MustNewAddress([20]byte{0x02}).String()
	sink := crypto.MustNewAddress([20]byte{0xFE}).String()
	body := strings.Join([]string{
		`ChainID = 21`,
		`DataDir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"`,
		``,
		`[RPC]`,
		`Address = "127.0.0.1:0"`,
		`JWTSecret = "node-secret"`,
		`JWTSecretEnv = ""`,
		`ReadTimeout = 3`,
		``,
		`[Wallet]`,
		`Sponsors = ["` + owner + `"]`,
		``,
		`[Genesis]`,
		`GenesisTime = "2024-01-01T00:00:00Z"`,
		`Owner = "` + owner + `"`,
		`EscrowAssets = ["USD"]`,
		``,
		`[[Genesis.Assets]]`,
		`Symbol = "USD"`,
		`Name = "US Dollar"`,
		`Decimals = 2`,
		``,
		`[Genesis.FeePolicy]`,
		`feeBasisPoints = 100`,
		`minimumFee = "10"`,
		`minPaymentAmount = "1"`,
		`maxPaymentAmount = "1000000"`,
		`feeRecipient = "` + sink + `"`,
		``,
		`[Genesis.Alloc."` + sender + `"]`,
		`USD = "5000"`,
		``,
	}, "\n")
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestOpenNodeAppliesGenesisAndRecordsEvents(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(writeNodeConfig(t, dir))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	logger := logging.New(os.Stderr, "padipayd", "test", logging.ParseLevel("error"))

	n, err := openNode(cfg, logger)
	if err != nil {
		t.Fatalf("open node: %v", err)
	}
	status := n.ledger.Status()
	if status.ChainID != 21 || status.Height != 1 {
		t.Fatalf("unexpected status after genesis: %+v", status)
	}

	sender := [20]byte{0x02}
	recipient := [20]byte{0x03}
	if err := n.ledger.Transfer(context.Background(), sender, recipient, "USD", big.NewInt(700)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	last, err := n.audit.LastHeight()
	if err != nil {
		t.Fatalf("audit height: %v", err)
	}
	if last != n.ledger.Height() {
		t.Fatalf("audit log at height %d, ledger at %d", last, n.ledger.Height())
	}
	root := n.ledger.StateRoot()
	if err := n.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := openNode(cfg, logger)
	if err != nil {
		t.Fatalf("reopen node: %v", err)
	}
	defer reopened.Close()
	if reopened.ledger.StateRoot() != root {
		t.Fatalf("state root changed across restart")
	}
	balance, err := reopened.ledger.Balance(recipient, "USD")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 700 {
		t.Fatalf("unexpected recipient balance %s", balance)
	}
}

func TestOpenNodeRequiresSecretFromEnv(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(writeNodeConfig(t, dir))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.RPC.JWTSecretEnv = "PADIPAY_TEST_MISSING_SECRET"
	t.Setenv("PADIPAY_TEST_MISSING_SECRET", "")
	logger := logging.New(os.Stderr, "padipayd", "test", logging.ParseLevel("error"))
	if _, err := openNode(cfg, logger); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestServerConfigConvertsTimeouts(t *testing.T) {
	cfg := &config.Config{}
	cfg.RPC.ReadHeaderTimeout = 2
	cfg.RPC.IdleTimeout = -1
	cfg.RPC.RateLimitBurst = 9
	got := serverConfig(cfg, "s")
	if got.ReadHeaderTimeout != 2*time.Second || got.IdleTimeout != 0 {
		t.Fatalf("unexpected timeouts: %+v", got)
	}
	if got.JWTSecret != "s" || got.RateLimitBurst != 9 {
		t.Fatalf("unexpected server config: %+v", got)
	}
}
