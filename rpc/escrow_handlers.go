package rpc

import (
	"net/http"
)

type escrowAssetParams struct {
	Asset string `json:"asset"`
}

type escrowClaimParams struct {
	Fingerprint string `json:"fingerprint"`
	Address     string `json:"address,omitempty"`
}

type escrowClaimableParams struct {
	Fingerprint string `json:"fingerprint"`
	Asset       string `json:"asset"`
}

type escrowClaimedResult struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type escrowAmountResult struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type assetListResult struct {
	Assets []string `json:"assets"`
}

func (s *Server) handleEscrowSetSupported(w http.ResponseWriter, r *http.Request, req *RPCRequest, supported bool) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params escrowAssetParams
	if !decodeParams(w, req, &params) {
		return
	}
	var err error
	if supported {
		err = s.ledger.AddSupportedAsset(r.Context(), caller, params.Asset)
	} else {
		err = s.ledger.RemoveSupportedAsset(r.Context(), caller, params.Asset)
	}
	if err != nil {
		writeLedgerError(w, req.ID, "failed to update supported assets", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleEscrowSupportedAssets(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	assets, err := s.ledger.SupportedAssets()
	if err != nil {
		writeLedgerError(w, req.ID, "failed to list supported assets", err)
		return
	}
	if assets == nil {
		assets = []string{}
	}
	writeResult(w, req.ID, assetListResult{Assets: assets})
}

func (s *Server) handleEscrowClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params escrowClaimParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	addr := caller
	if params.Address != "" {
		if addr, err = parseAddress(params.Address); err != nil {
			invalidParam(w, req, "address", err)
			return
		}
	}
	claimed, err := s.ledger.Claim(r.Context(), caller, fp, addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to claim escrow", err)
		return
	}
	out := make([]escrowClaimedResult, 0, len(claimed))
	for _, c := range claimed {
		out = append(out, escrowClaimedResult{Asset: c.Asset, Amount: amountString(c.Amount)})
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleEscrowClaimableAmount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowClaimableParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	amount, err := s.ledger.ClaimableAmount(fp, params.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to query escrow", err)
		return
	}
	writeResult(w, req.ID, escrowAmountResult{Asset: params.Asset, Amount: amountString(amount)})
}
