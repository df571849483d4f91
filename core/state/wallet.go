package state

import (
	"fmt"

	"padipay/native/wallet"
)

var walletPrefix = []byte("wallet")

func walletKey(addr [20]byte) []byte {
	return hashedKey(walletPrefix, addr[:])
}

// WalletState returns the state of a deployed wallet or nil.
func (m *Manager) WalletState(addr [20]byte) (*wallet.State, error) {
	st := new(wallet.State)
	ok, err := m.getRLP(walletKey(addr), st)
	if err != nil || !ok {
		return nil, err
	}
	return st, nil
}

// PutWalletState stores a wallet's state under its address.
func (m *Manager) PutWalletState(st *wallet.State) error {
	if st == nil {
		return fmt.Errorf("wallet: state required")
	}
	return m.putRLP(walletKey(st.Address), st)
}
