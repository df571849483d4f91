package state

import (
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	escrowBalancePrefix = []byte("escrow/balance")
	escrowAssetsKey     = ethcrypto.Keccak256([]byte("escrow/assets"))
)

func escrowBalanceKey(fingerprint [32]byte, asset string) []byte {
	return hashedKey(escrowBalancePrefix, []byte(asset), fingerprint[:])
}

// EscrowBalance returns the amount held for a fingerprint in the asset.
func (m *Manager) EscrowBalance(fingerprint [32]byte, asset string) (*big.Int, error) {
	return m.loadAmount(escrowBalanceKey(fingerprint, asset))
}

// SetEscrowBalance stores the escrowed amount. Zero removes the entry.
func (m *Manager) SetEscrowBalance(fingerprint [32]byte, asset string, amount *big.Int) error {
	return m.writeAmount(escrowBalanceKey(fingerprint, asset), amount)
}

// EscrowAssets lists the assets escrow currently accepts, sorted.
func (m *Manager) EscrowAssets() ([]string, error) {
	var list []string
	if _, err := m.getRLP(escrowAssetsKey, &list); err != nil {
		return nil, err
	}
	if list == nil {
		return []string{}, nil
	}
	return list, nil
}

// SetEscrowAsset adds or removes an asset from the supported set.
func (m *Manager) SetEscrowAsset(asset string, supported bool) error {
	list, err := m.EscrowAssets()
	if err != nil {
		return err
	}
	idx := sort.SearchStrings(list, asset)
	present := idx < len(list) && list[idx] == asset
	switch {
	case supported && !present:
		list = append(list, "")
		copy(list[idx+1:], list[idx:])
		list[idx] = asset
	case !supported && present:
		list = append(list[:idx], list[idx+1:]...)
	default:
		return nil
	}
	if len(list) == 0 {
		return m.trie.Delete(escrowAssetsKey)
	}
	return m.putRLP(escrowAssetsKey, list)
}
