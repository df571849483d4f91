package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"padipay/crypto"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(addr).String()
}

func formatHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}
