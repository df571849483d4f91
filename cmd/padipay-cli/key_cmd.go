package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"padipay/cmd/internal/passphrase"
	"padipay/crypto"
)

// keyPassphrase resolves keystore secrets. Tests replace it.
var keyPassphrase = passphrase.NewSource(passphrase.DefaultEnv, "keystore")

func runGenerateKeyCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "write the raw hex key to this file")
	keystorePath := fs.String("keystore", "", "write an encrypted keystore to this file")
	light := fs.Bool("light", false, "use light scrypt parameters for the keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if (*out == "") == (*keystorePath == "") {
		fmt.Fprintln(stderr, "exactly one of --out or --keystore is required")
		return 1
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "generate key: %v\n", err)
		return 1
	}
	if *keystorePath != "" {
		pass, err := keyPassphrase.Get()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		save := crypto.SaveToKeystore
		if *light {
			save = crypto.SaveToKeystoreLight
		}
		if err := save(*keystorePath, key, pass); err != nil {
			fmt.Fprintf(stderr, "write keystore: %v\n", err)
			return 1
		}
	} else {
		encoded := hex.EncodeToString(key.Bytes())
		if err := os.WriteFile(*out, []byte(encoded), 0o600); err != nil {
			fmt.Fprintf(stderr, "write key: %v\n", err)
			return 1
		}
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runAddressCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyFile := fs.String("key", "", "raw hex key file")
	keystorePath := fs.String("keystore", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *keystorePath != "" {
		addr, err := crypto.KeystoreAddress(*keystorePath)
		if err != nil {
			fmt.Fprintf(stderr, "read keystore: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, addr.String())
		return 0
	}
	key, err := loadPrivateKey(*keyFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func loadPrivateKey(path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--key or --keystore is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("private key file %s not found. run padipay-cli generate-key first", path)
		}
		return nil, fmt.Errorf("failed to read private key file %s: %w", path, err)
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("private key file %s is empty", path)
	}
	keyBytes, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("private key file %s is not hex: %w", path, err)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key in %s: %w", path, err)
	}
	return key, nil
}

// loadSigner reads a raw key file or, when keystorePath is set, decrypts the
// keystore.
func loadSigner(keyFile, keystorePath string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(keystorePath) == "" {
		return loadPrivateKey(keyFile)
	}
	pass, err := keyPassphrase.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(keystorePath, pass)
	if err != nil {
		return nil, fmt.Errorf("open keystore %s: %w", keystorePath, err)
	}
	return key, nil
}
