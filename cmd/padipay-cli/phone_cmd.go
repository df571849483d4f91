package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"padipay/native/registry"
)

func runPhoneCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 || args[0] != "hash" {
		fmt.Fprintln(stderr, "Usage: padipay-cli phone hash <number>")
		return 1
	}
	fingerprint, err := hashPhone(args[1])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, fingerprint)
	return 0
}

func hashPhone(phone string) (string, error) {
	fp, err := registry.HashStrict(phone)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", phone, err)
	}
	return "0x" + hex.EncodeToString(fp[:]), nil
}
