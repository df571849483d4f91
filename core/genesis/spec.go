package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"padipay/crypto"
	"padipay/native/bank"
	"padipay/native/common"
	"padipay/native/fees"
)

// GenesisSpec describes the state applied to an empty ledger. It decodes from
// a standalone JSON file or from the Genesis table of the node config.
type GenesisSpec struct {
	GenesisTime  string                       `json:"genesisTime" toml:"GenesisTime"`
	ChainID      *uint64                      `json:"chainId,omitempty" toml:"ChainID"`
	Owner        string                       `json:"owner" toml:"Owner"`
	Assets       []AssetSpec                  `json:"assets" toml:"Assets"`
	EscrowAssets []string                     `json:"escrowAssets" toml:"EscrowAssets"`
	FeePolicy    *fees.Policy                 `json:"feePolicy,omitempty" toml:"FeePolicy"`
	Verifiers    []string                     `json:"verifiers,omitempty" toml:"Verifiers"`
	Alloc        map[string]map[string]string `json:"alloc" toml:"Alloc"` // addr -> asset -> amount

	genesisTimestamp time.Time
	owner            [20]byte
	verifiers        [][20]byte
	alloc            []allocation
}

// AssetSpec registers one ledger asset.
type AssetSpec struct {
	Symbol   string `json:"symbol" toml:"Symbol"`
	Name     string `json:"name" toml:"Name"`
	Decimals uint8  `json:"decimals" toml:"Decimals"`
}

type allocation struct {
	addr   [20]byte
	asset  string
	amount *big.Int
}

// LoadGenesisSpec reads and validates a JSON genesis file.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// ChainIDValue returns the configured chain id or fallback when unset.
func (s *GenesisSpec) ChainIDValue(fallback uint64) uint64 {
	if s.ChainID != nil {
		return *s.ChainID
	}
	return fallback
}

// Validate checks the spec and caches the parsed addresses and amounts.
func (s *GenesisSpec) Validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	if strings.TrimSpace(s.Owner) == "" {
		return fmt.Errorf("owner must be provided")
	}
	owner, err := parseAccount(s.Owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	s.owner = owner

	symbols := make(map[string]struct{}, len(s.Assets))
	for i := range s.Assets {
		normalized, err := s.Assets[i].validate()
		if err != nil {
			return fmt.Errorf("asset[%d]: %w", i, err)
		}
		if _, exists := symbols[normalized]; exists {
			return fmt.Errorf("asset[%d]: duplicate symbol %q", i, s.Assets[i].Symbol)
		}
		symbols[normalized] = struct{}{}
	}

	for i, asset := range s.EscrowAssets {
		normalized, err := bank.NormalizeSymbol(asset)
		if err != nil {
			return fmt.Errorf("escrowAssets[%d]: %w", i, err)
		}
		if _, ok := symbols[normalized]; !ok {
			return fmt.Errorf("escrowAssets[%d]: asset %q not declared", i, asset)
		}
	}

	if s.FeePolicy != nil {
		if err := s.FeePolicy.Validate(); err != nil {
			return fmt.Errorf("feePolicy: %w", err)
		}
	}

	s.verifiers = s.verifiers[:0]
	for i, v := range s.Verifiers {
		addr, err := parseAccount(v)
		if err != nil {
			return fmt.Errorf("verifier[%d]: %w", i, err)
		}
		s.verifiers = append(s.verifiers, addr)
	}

	s.alloc = s.alloc[:0]
	for addrStr, balances := range s.Alloc {
		addr, err := parseAccount(addrStr)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addrStr, err)
		}
		for symbol, amountStr := range balances {
			normalized, err := bank.NormalizeSymbol(symbol)
			if err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", addrStr, symbol, err)
			}
			if _, ok := symbols[normalized]; !ok {
				return fmt.Errorf("alloc[%q][%q]: asset not declared", addrStr, symbol)
			}
			amount, err := parseAmountString(amountStr)
			if err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", addrStr, symbol, err)
			}
			s.alloc = append(s.alloc, allocation{addr: addr, asset: normalized, amount: amount})
		}
	}
	sort.Slice(s.alloc, func(i, j int) bool {
		if s.alloc[i].addr != s.alloc[j].addr {
			return bytes.Compare(s.alloc[i].addr[:], s.alloc[j].addr[:]) < 0
		}
		return s.alloc[i].asset < s.alloc[j].asset
	})
	return nil
}

func (a *AssetSpec) validate() (string, error) {
	normalized, err := bank.NormalizeSymbol(a.Symbol)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Name) == "" {
		return "", fmt.Errorf("name must be provided")
	}
	if a.Decimals > 18 {
		return "", fmt.Errorf("decimals must be 18 or fewer")
	}
	return normalized, nil
}

func parseAccount(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if err := common.CheckAmount(amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
