package wallet

import (
	coreerr "padipay/core/errors"
	"padipay/core/events"
)

// HandleOp validates and executes a user operation as the entry point. Any
// error leaves the nonce consumed in the working state; the caller is
// expected to discard that state on failure.
func (e *Engine) HandleOp(op *UserOperation) (*Receipt, error) {
	const name = "wallet.handle_op"
	if e.state == nil {
		return nil, errNilState
	}
	if op == nil {
		return nil, coreerr.New(coreerr.KindInvalidInput, name, "operation required")
	}
	if len(op.Calls) == 0 {
		return nil, coreerr.Invalid(name, ErrNoCalls)
	}
	if len(op.Calls) > MaxCallsPerOp {
		return nil, coreerr.Wrapf(coreerr.KindBoundsViolation, name, ErrTooManyCalls, "%d calls, limit %d", len(op.Calls), MaxCallsPerOp)
	}
	nonce := op.Nonce
	opHash, err := e.ValidateUserOp(e.entryPoint, op)
	if err != nil {
		return nil, err
	}
	var sponsor [20]byte
	if op.HasPaymaster() {
		if e.sponsor == nil {
			return nil, coreerr.Unauthorized(name, ErrNoSponsor)
		}
		if err := e.sponsor.Sponsor(op.Paymaster, op, opHash); err != nil {
			return nil, coreerr.Unauthorized(name, err)
		}
		sponsor = op.Paymaster
	}
	if err := e.Execute(e.entryPoint, op); err != nil {
		return nil, err
	}
	receipt := &Receipt{OpHash: opHash, Sender: op.Sender, Nonce: nonce, Calls: len(op.Calls), Sponsor: sponsor}
	e.emit(events.WalletOpExecuted{
		Wallet:    op.Sender,
		OpHash:    opHash,
		Nonce:     nonce,
		Calls:     len(op.Calls),
		Sponsor:   sponsor,
		Timestamp: e.now(),
	})
	return receipt, nil
}

// Allowlist sponsors operations whose paymaster is in the set.
type Allowlist map[[20]byte]struct{}

// NewAllowlist builds an allowlist sponsor.
func NewAllowlist(paymasters ...[20]byte) Allowlist {
	out := make(Allowlist, len(paymasters))
	for _, p := range paymasters {
		out[p] = struct{}{}
	}
	return out
}

// Sponsor implements Sponsor.
func (a Allowlist) Sponsor(paymaster [20]byte, _ *UserOperation, _ [32]byte) error {
	if _, ok := a[paymaster]; !ok {
		return ErrSponsorRejected
	}
	return nil
}
