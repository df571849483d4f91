package core

import (
	"context"
	"math/big"

	"padipay/native/bank"
	"padipay/native/escrow"
	"padipay/native/fees"
	"padipay/native/payments"
	"padipay/native/registry"
	"padipay/native/wallet"
)

// --- Bank ---

// RegisterAsset adds a token to the bank. Owner only.
func (l *Ledger) RegisterAsset(ctx context.Context, caller [20]byte, symbol, name string, decimals uint8) (*bank.Asset, error) {
	var asset *bank.Asset
	err := l.Execute(ctx, "bank.register_asset", func() error {
		var err error
		asset, err = l.bank.RegisterAsset(caller, symbol, name, decimals)
		return err
	})
	return asset, err
}

// Mint credits amount of symbol to the recipient. Owner only.
func (l *Ledger) Mint(ctx context.Context, caller, to [20]byte, symbol string, amount *big.Int) error {
	return l.Execute(ctx, "bank.mint", func() error {
		return l.bank.Mint(caller, to, symbol, amount)
	})
}

// Transfer moves amount of symbol from one account to another.
func (l *Ledger) Transfer(ctx context.Context, from, to [20]byte, symbol string, amount *big.Int) error {
	return l.Execute(ctx, "bank.transfer", func() error {
		return l.bank.Transfer(from, to, symbol, amount)
	})
}

// Approve sets the allowance spender may draw from owner.
func (l *Ledger) Approve(ctx context.Context, owner, spender [20]byte, symbol string, amount *big.Int) error {
	return l.Execute(ctx, "bank.approve", func() error {
		return l.bank.Approve(owner, spender, symbol, amount)
	})
}

// TransferFrom moves funds on behalf of owner against the spender's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, spender, owner, to [20]byte, symbol string, amount *big.Int) error {
	return l.Execute(ctx, "bank.transfer_from", func() error {
		return l.bank.TransferFrom(spender, owner, to, symbol, amount)
	})
}

// Balance returns the holdings of addr in symbol.
func (l *Ledger) Balance(addr [20]byte, symbol string) (*big.Int, error) {
	var out *big.Int
	err := l.view(func() error {
		var err error
		out, err = l.bank.Balance(addr, symbol)
		return err
	})
	return out, err
}

// Allowance returns what spender may still draw from owner.
func (l *Ledger) Allowance(owner, spender [20]byte, symbol string) (*big.Int, error) {
	var out *big.Int
	err := l.view(func() error {
		var err error
		out, err = l.bank.Allowance(owner, spender, symbol)
		return err
	})
	return out, err
}

// Assets lists the registered token symbols.
func (l *Ledger) Assets() ([]string, error) {
	var out []string
	err := l.view(func() error {
		var err error
		out, err = l.bank.Assets()
		return err
	})
	return out, err
}

// --- Registry ---

// Register binds a phone fingerprint to addr.
func (l *Ledger) Register(ctx context.Context, caller [20]byte, fingerprint [32]byte, addr [20]byte) error {
	return l.Execute(ctx, "registry.register", func() error {
		return l.registry.Register(caller, fingerprint, addr)
	})
}

// Unregister removes a fingerprint binding.
func (l *Ledger) Unregister(ctx context.Context, caller [20]byte, fingerprint [32]byte) error {
	return l.Execute(ctx, "registry.unregister", func() error {
		return l.registry.Unregister(caller, fingerprint)
	})
}

// BatchRegister binds fingerprints to addresses pairwise. Owner only.
func (l *Ledger) BatchRegister(ctx context.Context, caller [20]byte, fingerprints [][32]byte, addrs [][20]byte) (int, error) {
	var written int
	err := l.Execute(ctx, "registry.batch_register", func() error {
		var err error
		written, err = l.registry.BatchRegister(caller, fingerprints, addrs)
		return err
	})
	return written, err
}

// SetVerifier grants or revokes the verifier role. Owner only.
func (l *Ledger) SetVerifier(ctx context.Context, caller, verifier [20]byte, enabled bool) error {
	return l.Execute(ctx, "registry.set_verifier", func() error {
		return l.registry.SetVerifier(caller, verifier, enabled)
	})
}

// IsRegistered reports whether the fingerprint is bound.
func (l *Ledger) IsRegistered(fingerprint [32]byte) (bool, error) {
	var ok bool
	err := l.view(func() error {
		var err error
		ok, err = l.registry.IsRegistered(fingerprint)
		return err
	})
	return ok, err
}

// Resolve returns the address bound to a fingerprint.
func (l *Ledger) Resolve(fingerprint [32]byte) ([20]byte, error) {
	var addr [20]byte
	err := l.view(func() error {
		var err error
		addr, err = l.registry.Resolve(fingerprint)
		return err
	})
	return addr, err
}

// Reverse returns the fingerprint bound to addr.
func (l *Ledger) Reverse(addr [20]byte) ([32]byte, error) {
	var fp [32]byte
	err := l.view(func() error {
		var err error
		fp, err = l.registry.Reverse(addr)
		return err
	})
	return fp, err
}

// RegistryEntry returns the full binding record for a fingerprint.
func (l *Ledger) RegistryEntry(fingerprint [32]byte) (*registry.Entry, error) {
	var entry *registry.Entry
	err := l.view(func() error {
		var err error
		entry, err = l.registry.Entry(fingerprint)
		return err
	})
	return entry, err
}

// Verifiers lists addresses holding the verifier role.
func (l *Ledger) Verifiers() ([][20]byte, error) {
	var out [][20]byte
	err := l.view(func() error {
		var err error
		out, err = l.registry.Verifiers()
		return err
	})
	return out, err
}

// --- Escrow ---

// AddSupportedAsset allows an asset to be held in escrow. Owner only.
func (l *Ledger) AddSupportedAsset(ctx context.Context, caller [20]byte, asset string) error {
	return l.Execute(ctx, "escrow.add_supported_asset", func() error {
		return l.escrow.AddSupportedAsset(caller, asset)
	})
}

// RemoveSupportedAsset stops new escrow deposits in an asset. Owner only.
func (l *Ledger) RemoveSupportedAsset(ctx context.Context, caller [20]byte, asset string) error {
	return l.Execute(ctx, "escrow.remove_supported_asset", func() error {
		return l.escrow.RemoveSupportedAsset(caller, asset)
	})
}

// SupportedAssets lists the assets escrow accepts.
func (l *Ledger) SupportedAssets() ([]string, error) {
	var out []string
	err := l.view(func() error {
		var err error
		out, err = l.escrow.SupportedAssets()
		return err
	})
	return out, err
}

// Claim releases every escrowed balance of fingerprint to addr and marks the
// matching pending payments claimed, in one call.
func (l *Ledger) Claim(ctx context.Context, caller [20]byte, fingerprint [32]byte, addr [20]byte) ([]escrow.Claimed, error) {
	var claimed []escrow.Claimed
	err := l.Execute(ctx, "escrow.claim", func() error {
		var err error
		claimed, err = l.claim(caller, fingerprint, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, c := range claimed {
		l.metrics.RecordClaim(c.Asset)
	}
	return claimed, nil
}

func (l *Ledger) claim(caller [20]byte, fingerprint [32]byte, addr [20]byte) ([]escrow.Claimed, error) {
	claimed, err := l.escrow.Claim(caller, fingerprint, addr)
	if err != nil {
		return nil, err
	}
	assets := make([]string, 0, len(claimed))
	for _, c := range claimed {
		assets = append(assets, c.Asset)
	}
	if _, err := l.payments.MarkClaimed(fingerprint, assets); err != nil {
		return nil, err
	}
	return claimed, nil
}

// ClaimableAmount returns the escrowed balance waiting on a fingerprint.
func (l *Ledger) ClaimableAmount(fingerprint [32]byte, asset string) (*big.Int, error) {
	var out *big.Int
	err := l.view(func() error {
		var err error
		out, err = l.escrow.ClaimableAmount(fingerprint, asset)
		return err
	})
	return out, err
}

// --- Payments ---

// SendPayment pays a phone fingerprint, delivering directly or escrowing.
func (l *Ledger) SendPayment(ctx context.Context, caller [20]byte, fingerprint [32]byte, asset string, gross *big.Int, memo string) (*payments.Record, error) {
	var record *payments.Record
	err := l.Execute(ctx, "payments.send", func() error {
		var err error
		record, err = l.payments.SendPayment(caller, fingerprint, asset, gross, memo)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.metrics.RecordPayment(record.Asset, record.IsEscrowed, record.GrossAmount, record.FeeAmount)
	return record, nil
}

// GetPayment returns the payment record with the given id.
func (l *Ledger) GetPayment(id uint64) (*payments.Record, error) {
	var out *payments.Record
	err := l.view(func() error {
		var err error
		out, err = l.payments.GetPayment(id)
		return err
	})
	return out, err
}

// PendingPayments lists unclaimed escrowed payments for a fingerprint.
func (l *Ledger) PendingPayments(fingerprint [32]byte) ([]*payments.Record, error) {
	var out []*payments.Record
	err := l.view(func() error {
		var err error
		out, err = l.payments.PendingPayments(fingerprint)
		return err
	})
	return out, err
}

// PlatformStats returns aggregate payment counters.
func (l *Ledger) PlatformStats() (*payments.Stats, error) {
	var out *payments.Stats
	err := l.view(func() error {
		var err error
		out, err = l.payments.GetPlatformStats()
		return err
	})
	return out, err
}

// FeePolicy returns the active fee policy.
func (l *Ledger) FeePolicy() (*fees.Policy, error) {
	var out *fees.Policy
	err := l.view(func() error {
		var err error
		out, err = l.payments.FeePolicy()
		return err
	})
	return out, err
}

// SetFeePolicy replaces the fee policy. Owner only.
func (l *Ledger) SetFeePolicy(ctx context.Context, caller [20]byte, policy fees.Policy) error {
	return l.Execute(ctx, "payments.set_fee_policy", func() error {
		return l.payments.SetFeePolicy(caller, policy)
	})
}

// PausePayments halts new payments. Owner only.
func (l *Ledger) PausePayments(ctx context.Context, caller [20]byte) error {
	return l.Execute(ctx, "payments.pause", func() error {
		return l.payments.Pause(caller)
	})
}

// UnpausePayments resumes payments. Owner only.
func (l *Ledger) UnpausePayments(ctx context.Context, caller [20]byte) error {
	return l.Execute(ctx, "payments.unpause", func() error {
		return l.payments.Unpause(caller)
	})
}

// PaymentsPaused reports whether payments are halted.
func (l *Ledger) PaymentsPaused() bool {
	var paused bool
	_ = l.view(func() error {
		paused = l.payments.Paused()
		return nil
	})
	return paused
}

// PaymentsModuleAddress is the spender senders approve before paying.
func (l *Ledger) PaymentsModuleAddress() [20]byte { return l.payments.ModuleAddress() }

// --- Wallet ---

// ComputeWalletAddress derives the wallet address for a fingerprint without deploying it.
func (l *Ledger) ComputeWalletAddress(fingerprint [32]byte) [20]byte {
	return l.wallet.ComputeAddress(fingerprint)
}

// DeployWallet creates the wallet for a fingerprint; repeat calls return the existing address.
func (l *Ledger) DeployWallet(ctx context.Context, caller [20]byte, fingerprint [32]byte) ([20]byte, bool, error) {
	var (
		addr    [20]byte
		created bool
	)
	err := l.Execute(ctx, "wallet.deploy", func() error {
		var err error
		addr, created, err = l.wallet.Deploy(caller, fingerprint)
		return err
	})
	return addr, created, err
}

// AssignWalletOwner hands a provisioned wallet to its owner key.
func (l *Ledger) AssignWalletOwner(ctx context.Context, caller [20]byte, fingerprint [32]byte, owner [20]byte) ([20]byte, error) {
	var addr [20]byte
	err := l.Execute(ctx, "wallet.assign_owner", func() error {
		var err error
		addr, err = l.wallet.AssignOwner(caller, fingerprint, owner)
		return err
	})
	return addr, err
}

// HandleOp validates and executes a signed wallet operation. A failing call
// inside the operation discards every effect including the nonce bump.
func (l *Ledger) HandleOp(ctx context.Context, op *wallet.UserOperation) (*wallet.Receipt, error) {
	var receipt *wallet.Receipt
	err := l.Execute(ctx, "wallet.handle_op", func() error {
		var err error
		receipt, err = l.wallet.HandleOp(op)
		return err
	})
	return receipt, err
}

// WalletState returns the stored state of a wallet.
func (l *Ledger) WalletState(addr [20]byte) (*wallet.State, error) {
	var out *wallet.State
	err := l.view(func() error {
		var err error
		out, err = l.wallet.WalletState(addr)
		return err
	})
	return out, err
}

// WalletNonce returns the next expected operation nonce for a wallet.
func (l *Ledger) WalletNonce(addr [20]byte) (uint64, error) {
	var nonce uint64
	err := l.view(func() error {
		var err error
		nonce, err = l.wallet.Nonce(addr)
		return err
	})
	return nonce, err
}

// WalletEntryPoint is the entry point address signed into every operation.
func (l *Ledger) WalletEntryPoint() [20]byte { return l.wallet.EntryPointAddress() }
