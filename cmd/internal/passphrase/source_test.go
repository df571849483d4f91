package passphrase

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("PADIPAY_TEST_PASS", "hunter2")
	src := NewSource("PADIPAY_TEST_PASS", "wallet")
	src.prompt = func(string) (string, error) {
		t.Fatalf("prompt should not run when the variable is set")
		return "", nil
	}
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("unexpected passphrase %q", got)
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("PADIPAY_TEST_PASS", "   ")
	if _, err := NewSource("PADIPAY_TEST_PASS", "").Get(); err == nil {
		t.Fatalf("expected blank passphrase to be rejected")
	}
}

func TestSourcePromptsOnceAndCaches(t *testing.T) {
	calls := 0
	src := NewSource("", "wallet")
	src.prompt = func(label string) (string, error) {
		calls++
		if label != "wallet" {
			t.Fatalf("unexpected label %q", label)
		}
		return "secret", nil
	}
	for i := 0; i < 3; i++ {
		got, err := src.Get()
		if err != nil || got != "secret" {
			t.Fatalf("get %d: %q %v", i, got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single prompt, got %d", calls)
	}
}

func TestSourceNoTerminalNamesVariable(t *testing.T) {
	src := NewSource("PADIPAY_UNSET_PASS_FOR_TEST", "keystore")
	src.prompt = func(string) (string, error) { return "", errNoTerminal }
	_, err := src.Get()
	if err == nil || !strings.Contains(err.Error(), "PADIPAY_UNSET_PASS_FOR_TEST") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}

func TestReadPasswordWritesPrompt(t *testing.T) {
	var buf bytes.Buffer
	got, err := readPassword(&buf, "keystore", func() ([]byte, error) { return []byte("pw"), nil })
	if err != nil || got != "pw" {
		t.Fatalf("read: %q %v", got, err)
	}
	if !strings.Contains(buf.String(), "Enter keystore passphrase") {
		t.Fatalf("unexpected prompt %q", buf.String())
	}
	if _, err := readPassword(&buf, "keystore", func() ([]byte, error) { return nil, errors.New("boom") }); err == nil {
		t.Fatalf("expected read failure")
	}
}

func TestStatic(t *testing.T) {
	if got, err := Static("pw").Get(); err != nil || got != "pw" {
		t.Fatalf("static: %q %v", got, err)
	}
	if _, err := Static("").Get(); err == nil {
		t.Fatalf("expected empty static passphrase to fail")
	}
}
