package genesis

import (
	"fmt"
	"sort"

	"padipay/core/state"
	"padipay/native/bank"
	"padipay/native/registry"
)

// Apply writes the genesis state through the state manager. The spec must
// have been validated. Writes are ordered so the resulting root only depends
// on the spec contents.
func Apply(spec *GenesisSpec, manager *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	if spec.owner == ([20]byte{}) {
		if err := spec.Validate(); err != nil {
			return err
		}
	}

	if err := manager.SetRole(bank.RoleOwner, spec.owner[:]); err != nil {
		return fmt.Errorf("owner role: %w", err)
	}

	assets := append([]AssetSpec(nil), spec.Assets...)
	for i := range assets {
		assets[i].Symbol, _ = bank.NormalizeSymbol(assets[i].Symbol)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Symbol < assets[j].Symbol })
	for _, a := range assets {
		if err := manager.PutAsset(&bank.Asset{Symbol: a.Symbol, Name: a.Name, Decimals: a.Decimals}); err != nil {
			return fmt.Errorf("asset %q: %w", a.Symbol, err)
		}
	}

	for _, asset := range spec.EscrowAssets {
		normalized, _ := bank.NormalizeSymbol(asset)
		if err := manager.SetEscrowAsset(normalized, true); err != nil {
			return fmt.Errorf("escrow asset %q: %w", asset, err)
		}
	}

	if spec.FeePolicy != nil {
		policy := spec.FeePolicy.Clone()
		if err := manager.SetFeePolicy(&policy); err != nil {
			return fmt.Errorf("fee policy: %w", err)
		}
	}

	for _, v := range spec.verifiers {
		if err := manager.SetRole(registry.RoleVerifier, v[:]); err != nil {
			return fmt.Errorf("verifier: %w", err)
		}
	}

	for _, a := range spec.alloc {
		if err := manager.SetBalance(a.addr, a.asset, a.amount); err != nil {
			return fmt.Errorf("alloc %x %s: %w", a.addr, a.asset, err)
		}
	}
	return nil
}
