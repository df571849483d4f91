package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/text/unicode/norm"
)

const (
	minPhoneDigits = 4
	maxPhoneDigits = 15
)

var (
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrZeroAddress         = errors.New("address must not be the zero address")
	ErrZeroFingerprint     = errors.New("fingerprint must not be zero")
	ErrAlreadyRegistered   = errors.New("fingerprint already registered")
	ErrNotRegistered       = errors.New("fingerprint not registered")
	ErrAddressUnbound      = errors.New("address has no registered fingerprint")
	ErrNotOwner            = errors.New("caller is not the registry owner")
	ErrNotBoundAddress     = errors.New("caller is neither the bound address nor the registry owner")
	ErrNotVerifier         = errors.New("caller is not an approved verifier")
	ErrEmptyBatch          = errors.New("batch must not be empty")
	ErrBatchLengthMismatch = errors.New("fingerprints and addresses differ in length")
)

// Entry is one half-pair of the fingerprint/address bijection as stored.
type Entry struct {
	Fingerprint  [32]byte
	Address      [20]byte
	RegisteredAt uint64
}

// CanonicalPhone folds compatibility characters (full-width digits, etc.) and
// strips the separators people type into phone numbers. A single leading plus
// sign is kept.
func CanonicalPhone(phone string) string {
	folded := norm.NFKC.String(strings.TrimSpace(phone))
	var b strings.Builder
	b.Grow(len(folded))
	for i, r := range folded {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '\t':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone checks that a canonical phone number is an optional plus sign
// followed by 4 to 15 digits.
func ValidatePhone(canonical string) error {
	digits := strings.TrimPrefix(canonical, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return fmt.Errorf("%w: expected %d-%d digits", ErrInvalidPhone, minPhoneDigits, maxPhoneDigits)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidPhone, r)
		}
	}
	return nil
}

// Hash returns the fingerprint of a phone number: keccak256 over the UTF-8
// bytes of its canonical form.
func Hash(phone string) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256([]byte(CanonicalPhone(phone))))
	return out
}

// HashStrict is Hash with phone validation.
func HashStrict(phone string) ([32]byte, error) {
	canonical := CanonicalPhone(phone)
	if err := ValidatePhone(canonical); err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], crypto.Keccak256([]byte(canonical)))
	return out, nil
}
