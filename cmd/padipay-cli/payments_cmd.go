package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func runStatusCommand(_ []string, stdout, stderr io.Writer) int {
	result, rpcErr, err := callRPC("ledger_status", nil, false)
	return report(stdout, stderr, result, rpcErr, err)
}

func runBalanceCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asset := fs.String("asset", "", "asset symbol")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 || strings.TrimSpace(*asset) == "" {
		fmt.Fprintln(stderr, "Usage: padipay-cli balance --asset SYMBOL <address>")
		return 1
	}
	result, rpcErr, err := callRPC("bank_balance", map[string]string{"address": fs.Arg(0), "asset": *asset}, false)
	return report(stdout, stderr, result, rpcErr, err)
}

func runPayCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	phone := fs.String("phone", "", "recipient phone number")
	fingerprint := fs.String("fingerprint", "", "recipient fingerprint (0x hex)")
	asset := fs.String("asset", "", "asset symbol")
	amount := fs.String("amount", "", "gross amount in base units")
	memo := fs.String("memo", "", "optional memo")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	fp, err := fingerprintParam(*phone, *fingerprint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	units, err := parseBaseUnits(*amount)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if strings.TrimSpace(*asset) == "" {
		fmt.Fprintln(stderr, "--asset is required")
		return 1
	}
	params := map[string]string{"fingerprint": fp, "asset": *asset, "amount": units}
	if *memo != "" {
		params["memo"] = *memo
	}
	result, rpcErr, err := callRPC("payments_send", params, true)
	return report(stdout, stderr, result, rpcErr, err)
}

func runClaimCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	phone := fs.String("phone", "", "phone number to claim for")
	fingerprint := fs.String("fingerprint", "", "fingerprint (0x hex)")
	address := fs.String("address", "", "bound address; defaults to the token's caller")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	fp, err := fingerprintParam(*phone, *fingerprint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	params := map[string]string{"fingerprint": fp}
	if strings.TrimSpace(*address) != "" {
		params["address"] = *address
	}
	result, rpcErr, err := callRPC("escrow_claim", params, true)
	return report(stdout, stderr, result, rpcErr, err)
}

func runPaymentsCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, paymentsUsage())
		return 1
	}
	switch args[0] {
	case "get":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "Usage: padipay-cli payments get <id>")
			return 1
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(stderr, "invalid payment id %q\n", args[1])
			return 1
		}
		result, rpcErr, err := callRPC("payments_get", map[string]uint64{"id": id}, false)
		return report(stdout, stderr, result, rpcErr, err)
	case "pending":
		fs := flag.NewFlagSet("payments pending", flag.ContinueOnError)
		fs.SetOutput(stderr)
		phone := fs.String("phone", "", "phone number")
		fingerprint := fs.String("fingerprint", "", "fingerprint (0x hex)")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		fp, err := fingerprintParam(*phone, *fingerprint)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		result, rpcErr, err := callRPC("payments_pending", map[string]string{"fingerprint": fp}, false)
		return report(stdout, stderr, result, rpcErr, err)
	case "stats":
		result, rpcErr, err := callRPC("payments_stats", nil, false)
		return report(stdout, stderr, result, rpcErr, err)
	case "fee-policy":
		result, rpcErr, err := callRPC("payments_feePolicy", nil, false)
		return report(stdout, stderr, result, rpcErr, err)
	default:
		fmt.Fprintf(stderr, "Unknown payments command: %s\n", args[0])
		fmt.Fprintln(stderr, paymentsUsage())
		return 1
	}
}

func paymentsUsage() string {
	return strings.TrimSpace(`Usage:
  padipay-cli payments <command> [flags]

Commands:
  get         Fetch a payment by id
  pending     List escrowed payments for a phone number
  stats       Show platform totals
  fee-policy  Show the active fee policy`)
}

func parseBaseUnits(value string) (string, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return "", fmt.Errorf("--amount is required")
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("--amount must be a whole number of base units, got %q", value)
		}
	}
	return trimmed, nil
}

func runTransferCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	to := fs.String("to", "", "recipient address")
	asset := fs.String("asset", "", "asset symbol")
	amount := fs.String("amount", "", "amount in base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	units, err := parseBaseUnits(*amount)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if strings.TrimSpace(*to) == "" || strings.TrimSpace(*asset) == "" {
		fmt.Fprintln(stderr, "--to and --asset are required")
		return 1
	}
	result, rpcErr, err := callRPC("bank_transfer", map[string]string{"to": *to, "asset": *asset, "amount": units}, true)
	return report(stdout, stderr, result, rpcErr, err)
}
