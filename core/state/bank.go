package state

import (
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"padipay/native/bank"
)

var (
	assetPrefix     = []byte("asset")
	assetListKey    = ethcrypto.Keccak256([]byte("asset-list"))
	balancePrefix   = []byte("balance")
	allowancePrefix = []byte("allowance")
)

func assetKey(symbol string) []byte {
	return hashedKey(assetPrefix, []byte(symbol))
}

func balanceKey(addr [20]byte, symbol string) []byte {
	return hashedKey(balancePrefix, []byte(symbol), addr[:])
}

func allowanceKey(owner, spender [20]byte, symbol string) []byte {
	return hashedKey(allowancePrefix, []byte(symbol), owner[:], spender[:])
}

// Asset returns the metadata of a registered asset or nil when unknown.
func (m *Manager) Asset(symbol string) (*bank.Asset, error) {
	asset := new(bank.Asset)
	ok, err := m.getRLP(assetKey(symbol), asset)
	if err != nil || !ok {
		return nil, err
	}
	return asset, nil
}

// PutAsset stores asset metadata and records the symbol in the asset index.
func (m *Manager) PutAsset(asset *bank.Asset) error {
	if asset == nil || asset.Symbol == "" {
		return fmt.Errorf("asset symbol must not be empty")
	}
	list, err := m.AssetList()
	if err != nil {
		return err
	}
	idx := sort.SearchStrings(list, asset.Symbol)
	if idx == len(list) || list[idx] != asset.Symbol {
		list = append(list, "")
		copy(list[idx+1:], list[idx:])
		list[idx] = asset.Symbol
		if err := m.putRLP(assetListKey, list); err != nil {
			return err
		}
	}
	return m.putRLP(assetKey(asset.Symbol), asset)
}

// AssetList returns all registered asset symbols in sorted order.
func (m *Manager) AssetList() ([]string, error) {
	var list []string
	if _, err := m.getRLP(assetListKey, &list); err != nil {
		return nil, err
	}
	if list == nil {
		return []string{}, nil
	}
	return list, nil
}

func (m *Manager) loadAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.getRLP(key, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) writeAmount(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return m.trie.Delete(key)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount not allowed")
	}
	return m.putRLP(key, amount)
}

// Balance returns the balance of addr for the asset. Missing balances are
// zero.
func (m *Manager) Balance(addr [20]byte, symbol string) (*big.Int, error) {
	return m.loadAmount(balanceKey(addr, symbol))
}

// SetBalance stores the balance of addr for a registered asset.
func (m *Manager) SetBalance(addr [20]byte, symbol string, amount *big.Int) error {
	asset, err := m.Asset(symbol)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("asset %s not registered", symbol)
	}
	return m.writeAmount(balanceKey(addr, symbol), amount)
}

// Allowance returns the amount spender may move out of owner's balance.
func (m *Manager) Allowance(owner, spender [20]byte, symbol string) (*big.Int, error) {
	return m.loadAmount(allowanceKey(owner, spender, symbol))
}

// SetAllowance stores the allowance owner granted to spender.
func (m *Manager) SetAllowance(owner, spender [20]byte, symbol string, amount *big.Int) error {
	return m.writeAmount(allowanceKey(owner, spender, symbol), amount)
}
