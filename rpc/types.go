package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"padipay/core/types"
	"padipay/crypto"
	"padipay/native/payments"
	"padipay/native/registry"
	"padipay/native/wallet"
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// PaymentResult renders a payment record for RPC consumers.
type PaymentResult struct {
	ID                   uint64 `json:"id"`
	Sender               string `json:"sender"`
	RecipientFingerprint string `json:"recipientFingerprint"`
	Recipient            string `json:"recipient,omitempty"`
	GrossAmount          string `json:"grossAmount"`
	FeeAmount            string `json:"feeAmount"`
	NetAmount            string `json:"netAmount"`
	Asset                string `json:"asset"`
	Memo                 string `json:"memo,omitempty"`
	Timestamp            uint64 `json:"timestamp"`
	IsEscrowed           bool   `json:"isEscrowed"`
	Claimed              bool   `json:"claimed"`
}

func paymentResultFrom(rec *payments.Record) PaymentResult {
	out := PaymentResult{
		ID:                   rec.ID,
		Sender:               formatAddress(rec.Sender),
		RecipientFingerprint: formatHash(rec.RecipientFingerprint),
		GrossAmount:          amountString(rec.GrossAmount),
		FeeAmount:            amountString(rec.FeeAmount),
		NetAmount:            amountString(rec.NetAmount),
		Asset:                rec.Asset,
		Memo:                 rec.Memo,
		Timestamp:            rec.Timestamp,
		IsEscrowed:           rec.IsEscrowed,
		Claimed:              rec.Claimed,
	}
	if rec.Recipient != ([20]byte{}) {
		out.Recipient = formatAddress(rec.Recipient)
	}
	return out
}

// StatsResult renders PlatformStats.
type StatsResult struct {
	TotalSent    uint64 `json:"totalSent"`
	TotalClaimed uint64 `json:"totalClaimed"`
	TotalVolume  string `json:"totalVolume"`
	TotalFees    string `json:"totalFees"`
}

func statsResultFrom(stats *payments.Stats) StatsResult {
	return StatsResult{
		TotalSent:    stats.TotalSent,
		TotalClaimed: stats.TotalClaimed,
		TotalVolume:  amountString(stats.TotalVolume),
		TotalFees:    amountString(stats.TotalFees),
	}
}

// RegistryEntryResult renders a fingerprint binding.
type RegistryEntryResult struct {
	Fingerprint  string `json:"fingerprint"`
	Address      string `json:"address"`
	RegisteredAt uint64 `json:"registeredAt"`
}

func registryEntryResultFrom(entry *registry.Entry) RegistryEntryResult {
	return RegistryEntryResult{
		Fingerprint:  formatHash(entry.Fingerprint),
		Address:      formatAddress(entry.Address),
		RegisteredAt: entry.RegisteredAt,
	}
}

// WalletResult renders a deployed wallet.
type WalletResult struct {
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	EntryPoint  string `json:"entryPoint"`
	Nonce       uint64 `json:"nonce"`
	Fingerprint string `json:"fingerprint"`
	DeployedAt  uint64 `json:"deployedAt"`
}

func walletResultFrom(st *wallet.State) WalletResult {
	return WalletResult{
		Address:     formatAddress(st.Address),
		Owner:       formatAddress(st.Owner),
		EntryPoint:  formatAddress(st.EntryPoint),
		Nonce:       st.Nonce,
		Fingerprint: formatHash(st.Fingerprint),
		DeployedAt:  st.DeployedAt,
	}
}

// CallJSON is the wire form of a wallet call.
type CallJSON struct {
	Method      string `json:"method"`
	To          string `json:"to,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

// UserOperationJSON is the wire form of a signed wallet request.
type UserOperationJSON struct {
	Sender    string     `json:"sender"`
	Nonce     uint64     `json:"nonce"`
	Calls     []CallJSON `json:"calls"`
	Paymaster string     `json:"paymaster,omitempty"`
	Signature string     `json:"signature"`
}

// NewUserOperationJSON renders op in wire form.
func NewUserOperationJSON(op *wallet.UserOperation) UserOperationJSON {
	out := UserOperationJSON{
		Sender:    formatAddress(op.Sender),
		Nonce:     op.Nonce,
		Calls:     make([]CallJSON, 0, len(op.Calls)),
		Signature: "0x" + hex.EncodeToString(op.Signature),
	}
	if op.HasPaymaster() {
		out.Paymaster = formatAddress(op.Paymaster)
	}
	for _, call := range op.Calls {
		wire := CallJSON{Method: call.Method, Asset: call.Asset, Memo: call.Memo}
		if call.To != ([20]byte{}) {
			wire.To = formatAddress(call.To)
		}
		if call.Fingerprint != ([32]byte{}) {
			wire.Fingerprint = formatHash(call.Fingerprint)
		}
		if call.Amount != nil {
			wire.Amount = call.Amount.String()
		}
		out.Calls = append(out.Calls, wire)
	}
	return out
}

// Operation decodes the wire form.
func (u UserOperationJSON) Operation() (*wallet.UserOperation, error) {
	sender, err := parseAddress(u.Sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	op := &wallet.UserOperation{Sender: sender, Nonce: u.Nonce, Calls: make([]wallet.Call, 0, len(u.Calls))}
	if strings.TrimSpace(u.Paymaster) != "" {
		if op.Paymaster, err = parseAddress(u.Paymaster); err != nil {
			return nil, fmt.Errorf("paymaster: %w", err)
		}
	}
	if op.Signature, err = parseHex(u.Signature); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	for i, wire := range u.Calls {
		call := wallet.Call{Method: wire.Method, Asset: wire.Asset, Memo: wire.Memo}
		if strings.TrimSpace(wire.To) != "" {
			if call.To, err = parseAddress(wire.To); err != nil {
				return nil, fmt.Errorf("calls[%d].to: %w", i, err)
			}
		}
		if strings.TrimSpace(wire.Fingerprint) != "" {
			if call.Fingerprint, err = parseHash(wire.Fingerprint); err != nil {
				return nil, fmt.Errorf("calls[%d].fingerprint: %w", i, err)
			}
		}
		if strings.TrimSpace(wire.Amount) != "" {
			if call.Amount, err = parseAmount(wire.Amount); err != nil {
				return nil, fmt.Errorf("calls[%d].amount: %w", i, err)
			}
		}
		op.Calls = append(op.Calls, call)
	}
	return op, nil
}

// StreamEvent is the websocket payload for one committed event.
type StreamEvent struct {
	Height     uint64            `json:"height"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func streamEventFrom(height uint64, evt *types.Event) StreamEvent {
	return StreamEvent{Height: height, Type: evt.Type, Attributes: evt.Attributes}
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(addr).String()
}

func formatHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAddress(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

func parseHex(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	return hex.DecodeString(trimmed)
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := parseHex(value)
	if err != nil {
		return out, err
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}
