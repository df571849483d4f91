package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// DefaultEnv names the variable consulted before prompting for a keystore
// passphrase.
const DefaultEnv = "PADIPAY_KEYSTORE_PASS"

// Source resolves a keystore passphrase once, from the environment or an
// interactive prompt, and caches the result.
type Source struct {
	envVar string
	label  string
	prompt func(label string) (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource returns a source that checks envVar before prompting. The label
// names the keystore in prompts and errors.
func NewSource(envVar, label string) *Source {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "keystore"
	}
	return &Source{envVar: strings.TrimSpace(envVar), label: label, prompt: promptTerminal}
}

// Static returns a source that always yields value. Used by tests and by
// callers that already hold the secret.
func Static(value string) *Source {
	s := &Source{label: "keystore"}
	s.once.Do(func() {
		if strings.TrimSpace(value) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = value
	})
	return s
}

// Get returns the cached passphrase, resolving it on first use. Whitespace-only
// passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}
		if s.prompt == nil {
			s.err = fmt.Errorf("%s passphrase required", s.label)
			return
		}
		value, err := s.prompt(s.label)
		if err != nil {
			if s.envVar != "" && errors.Is(err, errNoTerminal) {
				s.err = fmt.Errorf("%s passphrase required; set %s or run interactively", s.label, s.envVar)
				return
			}
			s.err = err
			return
		}
		if strings.TrimSpace(value) == "" {
			s.err = fmt.Errorf("%s passphrase cannot be empty", s.label)
			return
		}
		s.value = value
	})
	return s.value, s.err
}

var errNoTerminal = errors.New("no terminal available")

func promptTerminal(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	return readPassword(os.Stderr, label, func() ([]byte, error) { return term.ReadPassword(fd) })
}

func readPassword(w io.Writer, label string, read func() ([]byte, error)) (string, error) {
	fmt.Fprintf(w, "Enter %s passphrase: ", label)
	raw, err := read()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(raw), nil
}
