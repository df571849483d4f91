package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// registryImportFile is the on-disk shape accepted by `registry import`.
type registryImportFile struct {
	Entries []registryImportEntry `yaml:"entries"`
}

type registryImportEntry struct {
	Phone       string `yaml:"phone"`
	Fingerprint string `yaml:"fingerprint"`
	Address     string `yaml:"address"`
}

type registryBatchEntry struct {
	Fingerprint string `json:"fingerprint"`
	Address     string `json:"address"`
}

func runRegistryCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, registryUsage())
		return 1
	}
	switch args[0] {
	case "register":
		return runRegistryRegister(args[1:], stdout, stderr)
	case "unregister":
		return runRegistryLookup("registry_unregister", true, args[1:], stdout, stderr)
	case "resolve":
		return runRegistryLookup("registry_resolve", false, args[1:], stdout, stderr)
	case "import":
		return runRegistryImport(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown registry command: %s\n", args[0])
		fmt.Fprintln(stderr, registryUsage())
		return 1
	}
}

func runRegistryRegister(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("registry register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	phone := fs.String("phone", "", "phone number")
	fingerprint := fs.String("fingerprint", "", "fingerprint (0x hex)")
	address := fs.String("address", "", "address to bind; defaults to the token's caller")
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
		params["address"] = strings.TrimSpace(*address)
	}
	result, rpcErr, err := callRPC("registry_register", params, true)
	return report(stdout, stderr, result, rpcErr, err)
}

func runRegistryLookup(method string, requireAuth bool, args []string, stdout, stderr io.Writer) int {
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

func runRegistryImport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("registry import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "YAML file with an entries list")
	batch := fs.Int("batch", 100, "entries per registry_batchRegister call")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *batch <= 0 {
		fmt.Fprintln(stderr, "--batch must be positive")
		return 1
	}
	entries, err := loadRegistryImport(*file)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	written := 0
	for start := 0; start < len(entries); start += *batch {
		end := start + *batch
		if end > len(entries) {
			end = len(entries)
		}
		var out struct {
			Written int `json:"written"`
		}
		rpcErr, err := callInto("registry_batchRegister", map[string]interface{}{"entries": entries[start:end]}, true, &out)
		if err != nil {
			return handleRPCCallError(stderr, err)
		}
		if rpcErr != nil {
			fmt.Fprintf(stderr, "batch starting at entry %d rejected after %d written\n", start, written)
			return handleRPCError(stderr, rpcErr)
		}
		written += out.Written
	}
	fmt.Fprintf(stdout, "registered %d of %d entries\n", written, len(entries))
	return 0
}

func loadRegistryImport(path string) ([]registryBatchEntry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc registryImportFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("%s has no entries", path)
	}
	out := make([]registryBatchEntry, 0, len(doc.Entries))
	for i, entry := range doc.Entries {
		fp, err := fingerprintParam(entry.Phone, entry.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		if strings.TrimSpace(entry.Address) == "" {
			return nil, fmt.Errorf("entries[%d]: address is required", i)
		}
		out = append(out, registryBatchEntry{Fingerprint: fp, Address: strings.TrimSpace(entry.Address)})
	}
	return out, nil
}

func registryUsage() string {
	return strings.TrimSpace(`Usage:
  padipay-cli registry <command> [flags]

Commands:
  register    Bind a phone number to an address
  unregister  Release a phone number binding
  resolve     Look up the binding for a phone number
  import      Bulk-register entries from a YAML file`)
}
