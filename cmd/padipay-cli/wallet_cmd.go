package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"padipay/crypto"
	"padipay/native/wallet"
	"padipay/rpc"
)

// callSpec is one wallet call as written in a calls file. Phone is hashed
// locally into the fingerprint.
type callSpec struct {
	Method      string `yaml:"method"`
	To          string `yaml:"to"`
	Phone       string `yaml:"phone"`
	Fingerprint string `yaml:"fingerprint"`
	Asset       string `yaml:"asset"`
	Amount      string `yaml:"amount"`
	Memo        string `yaml:"memo"`
}

func (c callSpec) wire() (rpc.CallJSON, error) {
	out := rpc.CallJSON{
		Method: strings.TrimSpace(c.Method),
		To:     strings.TrimSpace(c.To),
		Asset:  strings.TrimSpace(c.Asset),
		Amount: strings.TrimSpace(c.Amount),
		Memo:   c.Memo,
	}
	if out.Method == "" {
		return out, fmt.Errorf("method is required")
	}
	if c.Phone != "" || c.Fingerprint != "" {
		fp, err := fingerprintParam(c.Phone, c.Fingerprint)
		if err != nil {
			return out, err
		}
		out.Fingerprint = fp
	}
	return out, nil
}

func runWalletCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, walletUsage())
		return 1
	}
	switch args[0] {
	case "address":
		return runWalletFingerprintCall("wallet_computeAddress", false, args[1:], stdout, stderr)
	case "deploy":
		return runWalletFingerprintCall("wallet_deploy", true, args[1:], stdout, stderr)
	case "assign-owner":
		return runWalletAssignOwner(args[1:], stdout, stderr)
	case "get":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "Usage: padipay-cli wallet get <address>")
			return 1
		}
		result, rpcErr, err := callRPC("wallet_get", map[string]string{"address": args[1]}, false)
		return report(stdout, stderr, result, rpcErr, err)
	case "send":
		return runWalletSend(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown wallet command: %s\n", args[0])
		fmt.Fprintln(stderr, walletUsage())
		return 1
	}
}

func runWalletFingerprintCall(method string, requireAuth bool, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(method, flag.ContinueOnError)
	fs.SetOutput(stderr)
	phone := fs.String("phone", "", "phone number")
	fingerprint := fs.String("fingerprint", "", "fingerprint (0x hex)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	fp, err := fingerprintParam(*phone, *fingerprint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	result, rpcErr, err := callRPC(method, map[string]string{"fingerprint": fp}, requireAuth)
	return report(stdout, stderr, result, rpcErr, err)
}

func runWalletAssignOwner(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wallet assign-owner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	phone := fs.String("phone", "", "phone number")
	fingerprint := fs.String("fingerprint", "", "fingerprint (0x hex)")
	owner := fs.String("owner", "", "new owner address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	fp, err := fingerprintParam(*phone, *fingerprint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if strings.TrimSpace(*owner) == "" {
		fmt.Fprintln(stderr, "--owner is required")
		return 1
	}
	result, rpcErr, err := callRPC("wallet_assignOwner", map[string]string{"fingerprint": fp, "owner": *owner}, true)
	return report(stdout, stderr, result, rpcErr, err)
}

func runWalletSend(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wallet send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	walletAddr := fs.String("wallet", "", "wallet address (sender)")
	keyFile := fs.String("key", "", "owner key file (raw hex)")
	keystorePath := fs.String("keystore", "", "owner keystore file")
	callsFile := fs.String("calls", "", "YAML or JSON list of calls")
	paymaster := fs.String("paymaster", "", "optional sponsoring paymaster")
	dryRun := fs.Bool("dry-run", false, "print the signed operation without submitting it")
	var single callSpec
	fs.StringVar(&single.Method, "method", "", "single call method (transfer, approve, sendPayment, register, claim)")
	fs.StringVar(&single.To, "to", "", "single call target address")
	fs.StringVar(&single.Phone, "phone", "", "single call phone number")
	fs.StringVar(&single.Asset, "asset", "", "single call asset")
	fs.StringVar(&single.Amount, "amount", "", "single call amount")
	fs.StringVar(&single.Memo, "memo", "", "single call memo")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*walletAddr) == "" {
		fmt.Fprintln(stderr, "--wallet is required")
		return 1
	}

	specs, err := loadCallSpecs(*callsFile, single)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	key, err := loadSigner(*keyFile, *keystorePath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var status struct {
		ChainID uint64 `json:"chainId"`
	}
	if rpcErr, err := callInto("ledger_status", nil, false, &status); err != nil || rpcErr != nil {
		return failCall(stderr, rpcErr, err)
	}
	var state rpc.WalletResult
	if rpcErr, err := callInto("wallet_get", map[string]string{"address": *walletAddr}, false, &state); err != nil || rpcErr != nil {
		return failCall(stderr, rpcErr, err)
	}

	op, err := buildUserOperation(*walletAddr, state.Nonce, specs, *paymaster)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	entryPoint, err := crypto.DecodeAddress(state.EntryPoint)
	if err != nil {
		fmt.Fprintf(stderr, "node returned invalid entry point %q: %v\n", state.EntryPoint, err)
		return 1
	}
	if err := signUserOperation(op, key, status.ChainID, entryPoint.Raw()); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	wire := rpc.NewUserOperationJSON(op)
	if *dryRun {
		encoded, _ := json.Marshal(wire)
		writeRPCResult(stdout, encoded)
		return 0
	}
	result, rpcErr, err := callRPC("wallet_handleOp", map[string]interface{}{"op": wire}, false)
	return report(stdout, stderr, result, rpcErr, err)
}

func failCall(stderr io.Writer, rpcErr *rpcError, err error) int {
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	return handleRPCError(stderr, rpcErr)
}

func loadCallSpecs(path string, single callSpec) ([]callSpec, error) {
	if strings.TrimSpace(path) == "" {
		if strings.TrimSpace(single.Method) == "" {
			return nil, fmt.Errorf("--calls or --method is required")
		}
		return []callSpec{single}, nil
	}
	if strings.TrimSpace(single.Method) != "" {
		return nil, fmt.Errorf("--calls and --method are mutually exclusive")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var specs []callSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%s lists no calls", path)
	}
	return specs, nil
}

func buildUserOperation(sender string, nonce uint64, specs []callSpec, paymaster string) (*wallet.UserOperation, error) {
	wire := rpc.UserOperationJSON{Sender: sender, Nonce: nonce, Paymaster: strings.TrimSpace(paymaster)}
	for i, spec := range specs {
		call, err := spec.wire()
		if err != nil {
			return nil, fmt.Errorf("calls[%d]: %w", i, err)
		}
		wire.Calls = append(wire.Calls, call)
	}
	return wire.Operation()
}

func signUserOperation(op *wallet.UserOperation, key *crypto.PrivateKey, chainID uint64, entryPoint [20]byte) error {
	digest, err := op.Hash(chainID, entryPoint)
	if err != nil {
		return fmt.Errorf("hash operation: %w", err)
	}
	sig, err := key.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign operation: %w", err)
	}
	op.Signature = sig
	return nil
}

func walletUsage() string {
	return strings.TrimSpace(`Usage:
  padipay-cli wallet <command> [flags]

Commands:
  address       Compute the wallet address for a phone number
  deploy        Provision the wallet for a phone number
  assign-owner  Hand a provisioned wallet to its owner
  get           Show wallet state
  send          Sign and submit a user operation

Example calls file:
  - method: sendPayment
    phone: "+2348012345678"
    asset: NGN
    amount: "15000"`)
}
