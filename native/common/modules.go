package common

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Module names double as pause keys and as seeds for module addresses.
const (
	ModuleBank       = "bank"
	ModuleRegistry   = "registry"
	ModuleEscrow     = "escrow"
	ModulePayments   = "payments"
	ModuleWallet     = "wallet"
	ModuleEntryPoint = "entrypoint"
	ModuleAccount    = "wallet-account"
)

// ModuleAddress derives the ledger address owned by a module. Module
// addresses have no private key; only the module itself moves their funds.
func ModuleAddress(name string) [20]byte {
	var out [20]byte
	copy(out[:], crypto.Keccak256([]byte("padipay/module/" + name))[12:])
	return out
}

// IsZeroAddress reports whether addr is the all-zero address.
func IsZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

// ErrModulePaused is returned by Guard while a module is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports per-module pause flags.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused, naming the module, while it is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
