package rpc

import (
	"net/http"
)

type bankBalanceParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type bankAllowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Asset   string `json:"asset"`
}

type bankApproveParams struct {
	Spender string `json:"spender"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type bankTransferParams struct {
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type bankAmountResult struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) handleBankBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bankBalanceParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		invalidParam(w, req, "address", err)
		return
	}
	balance, err := s.ledger.Balance(addr, params.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load balance", err)
		return
	}
	writeResult(w, req.ID, bankAmountResult{Asset: params.Asset, Amount: amountString(balance)})
}

func (s *Server) handleBankAllowance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bankAllowanceParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		invalidParam(w, req, "owner", err)
		return
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		invalidParam(w, req, "spender", err)
		return
	}
	allowance, err := s.ledger.Allowance(owner, spender, params.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load allowance", err)
		return
	}
	writeResult(w, req.ID, bankAmountResult{Asset: params.Asset, Amount: amountString(allowance)})
}

func (s *Server) handleBankAssets(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	assets, err := s.ledger.Assets()
	if err != nil {
		writeLedgerError(w, req.ID, "failed to list assets", err)
		return
	}
	if assets == nil {
		assets = []string{}
	}
	writeResult(w, req.ID, assetListResult{Assets: assets})
}

func (s *Server) handleBankApprove(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params bankApproveParams
	if !decodeParams(w, req, &params) {
		return
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		invalidParam(w, req, "spender", err)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		invalidParam(w, req, "amount", err)
		return
	}
	if err := s.ledger.Approve(r.Context(), caller, spender, params.Asset, amount); err != nil {
		writeLedgerError(w, req.ID, "failed to approve", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleBankTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleBankCredit(w, r, req, false)
}

func (s *Server) handleBankMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleBankCredit(w, r, req, true)
}

func (s *Server) handleBankCredit(w http.ResponseWriter, r *http.Request, req *RPCRequest, mint bool) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params bankTransferParams
	if !decodeParams(w, req, &params) {
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		invalidParam(w, req, "to", err)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		invalidParam(w, req, "amount", err)
		return
	}
	if mint {
		err = s.ledger.Mint(r.Context(), caller, to, params.Asset, amount)
	} else {
		err = s.ledger.Transfer(r.Context(), caller, to, params.Asset, amount)
	}
	if err != nil {
		writeLedgerError(w, req.ID, "failed to move funds", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}
