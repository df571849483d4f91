package bank

import (
	"errors"
	"fmt"
	"strings"
)

const maxSymbolLength = 16

var (
	ErrInvalidSymbol     = errors.New("asset symbol must be 1-16 alphanumeric characters")
	ErrAssetExists       = errors.New("asset already registered")
	ErrUnknownAsset      = errors.New("asset not registered")
	ErrZeroRecipient     = errors.New("recipient must not be the zero address")
	ErrZeroSpender       = errors.New("spender must not be the zero address")
	ErrInsufficientBal   = errors.New("insufficient balance")
	ErrInsufficientAllow = errors.New("insufficient allowance")
	ErrNotOwner          = errors.New("caller is not the ledger owner")
)

// Asset describes a fungible asset tracked by the ledger.
type Asset struct {
	Symbol   string
	Name     string
	Decimals uint8
}

// NormalizeSymbol canonicalises asset symbols to upper case and validates
// their shape.
func NormalizeSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" || len(normalized) > maxSymbolLength {
		return "", ErrInvalidSymbol
	}
	for _, r := range normalized {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
		}
	}
	return normalized, nil
}
