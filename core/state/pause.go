package state

import "fmt"

func pauseKey(module string) []byte {
	return []byte("pause/" + module)
}

// IsPaused reports whether the module is paused. Read errors report false.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.KVGet(pauseKey(module), &paused)
	return err == nil && ok && paused
}

// SetPaused records the pause flag of a module.
func (m *Manager) SetPaused(module string, paused bool) error {
	if module == "" {
		return fmt.Errorf("pause: module must not be empty")
	}
	if !paused {
		return m.KVDelete(pauseKey(module))
	}
	return m.KVPut(pauseKey(module), paused)
}
