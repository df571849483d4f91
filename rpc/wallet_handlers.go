package rpc

import (
	"net/http"
)

type walletFingerprintParams struct {
	Fingerprint string `json:"fingerprint"`
}

type walletAssignOwnerParams struct {
	Fingerprint string `json:"fingerprint"`
	Owner       string `json:"owner"`
}

type walletAddressParams struct {
	Address string `json:"address"`
}

type walletHandleOpParams struct {
	Op UserOperationJSON `json:"op"`
}

type walletAddressResult struct {
	Address string `json:"address"`
	Created bool   `json:"created,omitempty"`
}

type walletNonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type walletReceiptResult struct {
	OpHash  string `json:"opHash"`
	Sender  string `json:"sender"`
	Nonce   uint64 `json:"nonce"`
	Calls   int    `json:"calls"`
	Sponsor string `json:"sponsor,omitempty"`
}

func (s *Server) handleWalletComputeAddress(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params walletFingerprintParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	writeResult(w, req.ID, walletAddressResult{Address: formatAddress(s.ledger.ComputeWalletAddress(fp))})
}

func (s *Server) handleWalletDeploy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params walletFingerprintParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	addr, created, err := s.ledger.DeployWallet(r.Context(), caller, fp)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to deploy wallet", err)
		return
	}
	writeResult(w, req.ID, walletAddressResult{Address: formatAddress(addr), Created: created})
}

func (s *Server) handleWalletAssignOwner(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params walletAssignOwnerParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		invalidParam(w, req, "owner", err)
		return
	}
	addr, err := s.ledger.AssignWalletOwner(r.Context(), caller, fp, owner)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to assign wallet owner", err)
		return
	}
	writeResult(w, req.ID, walletAddressResult{Address: formatAddress(addr)})
}

// handleWalletHandleOp needs no bearer token: the operation signature is
// the authority.
func (s *Server) handleWalletHandleOp(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params walletHandleOpParams
	if !decodeParams(w, req, &params) {
		return
	}
	op, err := params.Op.Operation()
	if err != nil {
		invalidParam(w, req, "op", err)
		return
	}
	receipt, err := s.ledger.HandleOp(r.Context(), op)
	if err != nil {
		writeLedgerError(w, req.ID, "wallet operation failed", err)
		return
	}
	result := walletReceiptResult{
		OpHash: formatHash(receipt.OpHash),
		Sender: formatAddress(receipt.Sender),
		Nonce:  receipt.Nonce,
		Calls:  receipt.Calls,
	}
	if receipt.Sponsor != ([20]byte{}) {
		result.Sponsor = formatAddress(receipt.Sponsor)
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleWalletNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params walletAddressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		invalidParam(w, req, "address", err)
		return
	}
	nonce, err := s.ledger.WalletNonce(addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load wallet nonce", err)
		return
	}
	writeResult(w, req.ID, walletNonceResult{Address: params.Address, Nonce: nonce})
}

func (s *Server) handleWalletGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params walletAddressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		invalidParam(w, req, "address", err)
		return
	}
	st, err := s.ledger.WalletState(addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load wallet", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusConflict, req.ID, codeStateConflict, "wallet not deployed", params.Address)
		return
	}
	writeResult(w, req.ID, walletResultFrom(st))
}
