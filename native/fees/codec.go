package fees

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"padipay/crypto"
)

type policyJSON struct {
	FeeBasisPoints   uint32 `json:"feeBasisPoints"`
	MinimumFee       string `json:"minimumFee"`
	MinPaymentAmount string `json:"minPaymentAmount"`
	MaxPaymentAmount string `json:"maxPaymentAmount"`
	FeeRecipient     string `json:"feeRecipient"`
}

// MarshalJSON renders amounts as decimal strings and the fee recipient as a
// bech32 address.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(policyJSON{
		FeeBasisPoints:   p.FeeBasisPoints,
		MinimumFee:       amountString(p.MinimumFee),
		MinPaymentAmount: amountString(p.MinPaymentAmount),
		MaxPaymentAmount: amountString(p.MaxPaymentAmount),
		FeeRecipient:     crypto.MustNewAddress(p.FeeRecipient).String(),
	})
}

// UnmarshalJSON accepts amounts as JSON strings or numbers.
func (p *Policy) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	return p.fromTable(raw)
}

// UnmarshalTOML decodes a TOML table using either camelCase or snake_case
// keys.
func (p *Policy) UnmarshalTOML(data interface{}) error {
	table, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("fees: policy must decode from a table")
	}
	return p.fromTable(table)
}

func (p *Policy) fromTable(table map[string]any) error {
	var decoded Policy
	for key, value := range table {
		var err error
		switch normalizeKey(key) {
		case "feebasispoints":
			var bps *big.Int
			bps, err = parseAmount(value)
			if err == nil {
				if !bps.IsUint64() || bps.Uint64() > MaxBasisPoints {
					err = ErrBasisPointsRange
				} else {
					decoded.FeeBasisPoints = uint32(bps.Uint64())
				}
			}
		case "minimumfee":
			decoded.MinimumFee, err = parseAmount(value)
		case "minpaymentamount":
			decoded.MinPaymentAmount, err = parseAmount(value)
		case "maxpaymentamount":
			decoded.MaxPaymentAmount, err = parseAmount(value)
		case "feerecipient":
			s, ok := value.(string)
			if !ok {
				err = fmt.Errorf("must be a bech32 string")
				break
			}
			var addr crypto.Address
			addr, err = crypto.DecodeAddress(strings.TrimSpace(s))
			if err == nil {
				decoded.FeeRecipient = addr.Raw()
			}
		default:
			return fmt.Errorf("fees: unknown policy field %q", key)
		}
		if err != nil {
			return fmt.Errorf("fees: %s: %w", key, err)
		}
	}
	*p = decoded
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", ""))
}

func parseAmount(value any) (*big.Int, error) {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		return nil, fmt.Errorf("fractional amounts are not allowed")
	default:
		return nil, fmt.Errorf("unsupported amount type %T", value)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", text)
	}
	return amount, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
