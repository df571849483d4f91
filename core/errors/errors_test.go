package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

var errSample = stderrors.New("fingerprint already registered")

func TestErrorMatchesKindAndCause(t *testing.T) {
	err := Conflict("registry.register", errSample)
	if !Is(err, ErrStateConflict) {
		t.Fatalf("expected kind sentinel match")
	}
	if !Is(err, errSample) {
		t.Fatalf("expected cause match")
	}
	if Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected kind match")
	}
	if got := err.Error(); got != "registry.register: fingerprint already registered" {
		t.Fatalf("unexpected message %q", got)
	}
	wrapped := fmt.Errorf("ledger: %w", err)
	if KindOf(wrapped) != KindStateConflict {
		t.Fatalf("expected kind to survive wrapping, got %s", KindOf(wrapped))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindInvalidInput, "op", nil) != nil {
		t.Fatalf("nil cause should stay nil")
	}
	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}

func TestNewAndWrapf(t *testing.T) {
	err := New(KindBoundsViolation, "fees.compute", "gross below minimum")
	if !Is(err, ErrBoundsViolation) {
		t.Fatalf("expected bounds sentinel")
	}
	err = Wrapf(KindInsufficientFunds, "bank.transfer", errSample, "asset %s", "NGN")
	if got := err.Error(); got != "bank.transfer: asset NGN: fingerprint already registered" {
		t.Fatalf("unexpected message %q", got)
	}
}
