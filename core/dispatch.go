package core

import (
	coreerr "padipay/core/errors"
	"padipay/native/wallet"
)

// dispatcher executes wallet calls inside the enclosing ledger call. It never
// takes the ledger mutex.
type dispatcher struct {
	ledger *Ledger
}

func (d dispatcher) Dispatch(from [20]byte, call wallet.Call) error {
	l := d.ledger
	switch call.Method {
	case wallet.MethodTransfer:
		return l.bank.Transfer(from, call.To, call.Asset, call.Amount)
	case wallet.MethodApprove:
		return l.bank.Approve(from, call.To, call.Asset, call.Amount)
	case wallet.MethodSendPayment:
		_, err := l.payments.SendPayment(from, call.Fingerprint, call.Asset, call.Amount, call.Memo)
		return err
	case wallet.MethodRegister:
		target := call.To
		if target == ([20]byte{}) {
			target = from
		}
		return l.registry.Register(from, call.Fingerprint, target)
	case wallet.MethodClaim:
		_, err := l.claim(from, call.Fingerprint, from)
		return err
	default:
		return coreerr.Invalid("wallet.dispatch", wallet.ErrUnknownMethod)
	}
}
