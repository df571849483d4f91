package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	proxyPrefix = common.FromHex("3d602d80600a3d3981f3363d3d373d3d3d363d73")
	proxySuffix = common.FromHex("5af43d82803e903d91602b57fd5bf3")
)

// ProxyInitCode returns the EIP-1167 minimal proxy creation code delegating
// to implementation.
func ProxyInitCode(implementation [20]byte) []byte {
	code := make([]byte, 0, len(proxyPrefix)+len(implementation)+len(proxySuffix))
	code = append(code, proxyPrefix...)
	code = append(code, implementation[:]...)
	code = append(code, proxySuffix...)
	return code
}

// ComputeAddress derives a wallet address the CREATE2 way: from the
// provisioner, the fingerprint as salt, and the hash of the proxy init code.
func ComputeAddress(provisioner [20]byte, fingerprint [32]byte, initCodeHash []byte) [20]byte {
	return crypto.CreateAddress2(common.Address(provisioner), fingerprint, initCodeHash)
}
