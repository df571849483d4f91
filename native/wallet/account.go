package wallet

import (
	"fmt"

	coreerr "padipay/core/errors"
	"padipay/crypto"
)

// ValidateUserOp checks the operation signature and nonce against the sender
// wallet and consumes the nonce. Only the wallet's entry point may call it.
func (e *Engine) ValidateUserOp(caller [20]byte, op *UserOperation) ([32]byte, error) {
	const name = "wallet.validate_op"
	if e.state == nil {
		return [32]byte{}, errNilState
	}
	if op == nil {
		return [32]byte{}, coreerr.New(coreerr.KindInvalidInput, name, "operation required")
	}
	st, err := e.state.WalletState(op.Sender)
	if err != nil {
		return [32]byte{}, err
	}
	if st == nil {
		return [32]byte{}, coreerr.Conflict(name, ErrWalletNotDeployed)
	}
	if caller != st.EntryPoint {
		return [32]byte{}, coreerr.Unauthorized(name, ErrNotEntryPoint)
	}
	if len(op.Signature) != 65 {
		return [32]byte{}, coreerr.Invalid(name, ErrBadSignatureLen)
	}
	opHash, err := op.Hash(e.chainID, st.EntryPoint)
	if err != nil {
		return [32]byte{}, coreerr.Invalid(name, err)
	}
	signer, err := crypto.RecoverSigner(opHash[:], op.Signature)
	if err != nil {
		return [32]byte{}, coreerr.Unauthorized(name, fmt.Errorf("%w: %v", ErrBadSignature, err))
	}
	if signer != st.Owner {
		return [32]byte{}, coreerr.Unauthorized(name, ErrBadSignature)
	}
	if op.Nonce != st.Nonce {
		return [32]byte{}, coreerr.Wrapf(coreerr.KindStateConflict, name, ErrNonceMismatch, "expected %d, got %d", st.Nonce, op.Nonce)
	}
	st.Nonce++
	if err := e.state.PutWalletState(st); err != nil {
		return [32]byte{}, err
	}
	return opHash, nil
}

// Execute runs the operation's calls in order with the wallet as the acting
// address. The first failing call aborts the rest.
func (e *Engine) Execute(caller [20]byte, op *UserOperation) error {
	const name = "wallet.execute"
	if e.state == nil {
		return errNilState
	}
	if e.dispatcher == nil {
		return errNilDispatcher
	}
	st, err := e.state.WalletState(op.Sender)
	if err != nil {
		return err
	}
	if st == nil {
		return coreerr.Conflict(name, ErrWalletNotDeployed)
	}
	if caller != st.EntryPoint {
		return coreerr.Unauthorized(name, ErrNotEntryPoint)
	}
	for i, call := range op.Calls {
		if !knownMethod(call.Method) {
			return coreerr.Wrapf(coreerr.KindInvalidInput, name, ErrUnknownMethod, "call %d %q", i, call.Method)
		}
		if err := e.dispatcher.Dispatch(op.Sender, call); err != nil {
			return fmt.Errorf("call %d (%s): %w", i, call.Method, err)
		}
	}
	return nil
}

func knownMethod(method string) bool {
	switch method {
	case MethodTransfer, MethodApprove, MethodSendPayment, MethodRegister, MethodClaim:
		return true
	default:
		return false
	}
}
