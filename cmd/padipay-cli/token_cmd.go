package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"padipay/crypto"
	"padipay/rpc"
)

func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "address the token authenticates")
	secretEnv := fs.String("secret-env", "PADIPAY_JWT_SECRET", "environment variable holding the HMAC secret")
	issuer := fs.String("issuer", "", "issuer claim, when the node expects one")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	secret := strings.TrimSpace(os.Getenv(*secretEnv))
	if secret == "" {
		fmt.Fprintf(stderr, "%s is not set\n", *secretEnv)
		return 1
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(*caller))
	if err != nil {
		fmt.Fprintf(stderr, "invalid --caller: %v\n", err)
		return 1
	}
	token, err := rpc.IssueToken(secret, *issuer, addr.Raw(), *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "issue token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
