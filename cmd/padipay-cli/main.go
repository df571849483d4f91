package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// rpcEndpoint defaults to localhost and may be overridden via RPC_URL or --rpc.
var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = strings.TrimSpace(os.Getenv("PADIPAY_RPC_TOKEN"))

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	switch args[0] {
	case "generate-key":
		return runGenerateKeyCommand(args[1:], stdout, stderr)
	case "address":
		return runAddressCommand(args[1:], stdout, stderr)
	case "token":
		return runTokenCommand(args[1:], stdout, stderr)
	case "phone":
		return runPhoneCommand(args[1:], stdout, stderr)
	case "status":
		return runStatusCommand(args[1:], stdout, stderr)
	case "balance":
		return runBalanceCommand(args[1:], stdout, stderr)
	case "transfer":
		return runTransferCommand(args[1:], stdout, stderr)
	case "pay":
		return runPayCommand(args[1:], stdout, stderr)
	case "claim":
		return runClaimCommand(args[1:], stdout, stderr)
	case "payments":
		return runPaymentsCommand(args[1:], stdout, stderr)
	case "registry":
		return runRegistryCommand(args[1:], stdout, stderr)
	case "wallet":
		return runWalletCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			setGlobal(arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--rpc="):
			setGlobal("--rpc", strings.TrimPrefix(arg, "--rpc="))
		case strings.HasPrefix(arg, "--token="):
			setGlobal("--token", strings.TrimPrefix(arg, "--token="))
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func setGlobal(flagName, value string) {
	if flagName == "--rpc" {
		rpcEndpoint = strings.TrimSpace(value)
		return
	}
	rpcAuthToken = strings.TrimSpace(value)
}

func usage() string {
	return strings.TrimSpace(`Usage:
  padipay-cli [--rpc URL] [--token JWT] <command> [flags]

Commands:
  generate-key  Create a signing key (raw file or encrypted keystore)
  address       Print the address of a key or keystore
  token         Issue a bearer token for an address (development)
  phone         Phone number helpers (hash)
  status        Show the ledger head
  balance       Show an account balance
  transfer      Move funds to an address
  pay           Send a payment to a phone number
  claim         Claim escrowed funds for a phone number
  payments      Inspect payments (get, pending, stats, fee-policy)
  registry      Registry commands (register, resolve, import)
  wallet        Phone wallet commands (address, deploy, get, send)

Environment:
  RPC_URL            default RPC endpoint
  PADIPAY_RPC_TOKEN  bearer token for mutating calls
  PADIPAY_KEYSTORE_PASS  keystore passphrase`)
}
