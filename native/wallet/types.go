package wallet

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Supported call methods.
const (
	MethodTransfer    = "transfer"
	MethodApprove     = "approve"
	MethodSendPayment = "sendPayment"
	MethodRegister    = "register"
	MethodClaim       = "claim"
)

// MaxCallsPerOp bounds the batch executed by a single operation.
const MaxCallsPerOp = 16

var (
	ErrNotEntryPoint     = errors.New("caller is not the entry point")
	ErrNotProvisioner    = errors.New("caller is not the provisioner owner")
	ErrWalletNotDeployed = errors.New("wallet not deployed")
	ErrOwnerAssigned     = errors.New("wallet owner already assigned")
	ErrZeroOwner         = errors.New("owner must not be the zero address")
	ErrZeroFingerprint   = errors.New("fingerprint must not be zero")
	ErrBadSignatureLen   = errors.New("signature must be 65 bytes")
	ErrBadSignature      = errors.New("signature does not match wallet owner")
	ErrNonceMismatch     = errors.New("nonce mismatch")
	ErrNoCalls           = errors.New("operation has no calls")
	ErrTooManyCalls      = errors.New("operation exceeds the call limit")
	ErrUnknownMethod     = errors.New("unknown call method")
	ErrSponsorRejected   = errors.New("sponsor rejected operation")
	ErrNoSponsor         = errors.New("operation names a paymaster but no sponsor is configured")
)

// State is the persisted state of one deployed wallet account.
type State struct {
	Address     [20]byte
	Owner       [20]byte
	EntryPoint  [20]byte
	Nonce       uint64
	Fingerprint [32]byte
	DeployedAt  uint64
}

// Call is one action executed with the wallet as the acting address. Only
// the fields used by Method are read.
type Call struct {
	Method      string
	To          [20]byte
	Fingerprint [32]byte
	Asset       string
	Amount      *big.Int
	Memo        string
}

// UserOperation is a signed request to act through a wallet.
type UserOperation struct {
	Sender    [20]byte
	Nonce     uint64
	Calls     []Call
	Paymaster [20]byte
	Signature []byte
}

// HasPaymaster reports whether the operation asks for sponsorship.
func (op *UserOperation) HasPaymaster() bool {
	return op.Paymaster != [20]byte{}
}

// Hash returns the digest the wallet owner signs. It commits to the chain id,
// the entry point, the sender, the nonce, the calls and the paymaster.
func (op *UserOperation) Hash(chainID uint64, entryPoint [20]byte) ([32]byte, error) {
	encodedCalls, err := rlp.EncodeToBytes(normalizedCalls(op.Calls))
	if err != nil {
		return [32]byte{}, err
	}
	packed := make([]byte, 0, 32+20+20+32+32+20)
	packed = append(packed, common.BigToHash(new(big.Int).SetUint64(chainID)).Bytes()...)
	packed = append(packed, entryPoint[:]...)
	packed = append(packed, op.Sender[:]...)
	packed = append(packed, common.BigToHash(new(big.Int).SetUint64(op.Nonce)).Bytes()...)
	packed = append(packed, crypto.Keccak256(encodedCalls)...)
	packed = append(packed, op.Paymaster[:]...)
	var out [32]byte
	copy(out[:], crypto.Keccak256(packed))
	return out, nil
}

func normalizedCalls(calls []Call) []Call {
	out := make([]Call, len(calls))
	for i, c := range calls {
		out[i] = c
		if c.Amount == nil {
			out[i].Amount = new(big.Int)
		}
	}
	return out
}

// Receipt summarises an executed operation.
type Receipt struct {
	OpHash  [32]byte
	Sender  [20]byte
	Nonce   uint64
	Calls   int
	Sponsor [20]byte
}
