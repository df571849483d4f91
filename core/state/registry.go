package state

import (
	"fmt"

	"padipay/native/registry"
)

var (
	registryForwardPrefix = []byte("registry/fp")
	registryReversePrefix = []byte("registry/addr")
)

func registryForwardKey(fingerprint [32]byte) []byte {
	return hashedKey(registryForwardPrefix, fingerprint[:])
}

func registryReverseKey(addr [20]byte) []byte {
	return hashedKey(registryReversePrefix, addr[:])
}

// RegistryEntry returns the binding for a fingerprint or nil when unbound.
func (m *Manager) RegistryEntry(fingerprint [32]byte) (*registry.Entry, error) {
	entry := new(registry.Entry)
	ok, err := m.getRLP(registryForwardKey(fingerprint), entry)
	if err != nil || !ok {
		return nil, err
	}
	return entry, nil
}

// RegistryFingerprint returns the fingerprint bound to addr.
func (m *Manager) RegistryFingerprint(addr [20]byte) ([32]byte, bool, error) {
	var fp [32]byte
	ok, err := m.getRLP(registryReverseKey(addr), &fp)
	return fp, ok, err
}

// BindFingerprint writes both directions of a binding. Both halves must be
// free; the engine releases stale bindings first.
func (m *Manager) BindFingerprint(entry *registry.Entry) error {
	if entry == nil {
		return fmt.Errorf("registry: entry required")
	}
	existing, err := m.RegistryEntry(entry.Fingerprint)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("registry: fingerprint %x already bound", entry.Fingerprint)
	}
	if _, bound, err := m.RegistryFingerprint(entry.Address); err != nil {
		return err
	} else if bound {
		return fmt.Errorf("registry: address %x already bound", entry.Address)
	}
	if err := m.putRLP(registryForwardKey(entry.Fingerprint), entry); err != nil {
		return err
	}
	return m.putRLP(registryReverseKey(entry.Address), entry.Fingerprint)
}

// ReleaseFingerprint removes both directions of a binding and returns the
// removed entry, or nil when the fingerprint was unbound.
func (m *Manager) ReleaseFingerprint(fingerprint [32]byte) (*registry.Entry, error) {
	entry, err := m.RegistryEntry(fingerprint)
	if err != nil || entry == nil {
		return nil, err
	}
	if err := m.trie.Delete(registryForwardKey(fingerprint)); err != nil {
		return nil, err
	}
	if err := m.trie.Delete(registryReverseKey(entry.Address)); err != nil {
		return nil, err
	}
	return entry, nil
}
