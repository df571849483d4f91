package rpc

import (
	"errors"
	"net/http"
	"strings"

	"padipay/native/fees"
	"padipay/native/registry"
)

type paymentsSendParams struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Memo        string `json:"memo,omitempty"`
}

type paymentsGetParams struct {
	ID uint64 `json:"id"`
}

type paymentsSetFeePolicyParams struct {
	Policy fees.Policy `json:"policy"`
}

func (s *Server) handlePaymentsSend(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params paymentsSendParams
	if !decodeParams(w, req, &params) {
		return
	}
	var (
		fp  [32]byte
		err error
	)
	switch {
	case strings.TrimSpace(params.Fingerprint) != "":
		fp, err = parseHash(params.Fingerprint)
	case strings.TrimSpace(params.Phone) != "":
		fp, err = registry.HashStrict(params.Phone)
	default:
		err = errors.New("fingerprint or phone required")
	}
	if err != nil {
		invalidParam(w, req, "recipient", err)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		invalidParam(w, req, "amount", err)
		return
	}
	record, err := s.ledger.SendPayment(r.Context(), caller, fp, params.Asset, amount, params.Memo)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to send payment", err)
		return
	}
	writeResult(w, req.ID, paymentResultFrom(record))
}

func (s *Server) handlePaymentsGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params paymentsGetParams
	if !decodeParams(w, req, &params) {
		return
	}
	record, err := s.ledger.GetPayment(params.ID)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load payment", err)
		return
	}
	writeResult(w, req.ID, paymentResultFrom(record))
}

func (s *Server) handlePaymentsPending(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryFingerprintParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	records, err := s.ledger.PendingPayments(fp)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to list pending payments", err)
		return
	}
	out := make([]PaymentResult, 0, len(records))
	for _, rec := range records {
		out = append(out, paymentResultFrom(rec))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handlePaymentsStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	stats, err := s.ledger.PlatformStats()
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load stats", err)
		return
	}
	writeResult(w, req.ID, statsResultFrom(stats))
}

func (s *Server) handlePaymentsFeePolicy(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	policy, err := s.ledger.FeePolicy()
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load fee policy", err)
		return
	}
	if policy == nil {
		writeError(w, http.StatusConflict, req.ID, codeStateConflict, "fee policy not configured", nil)
		return
	}
	writeResult(w, req.ID, policy)
}

func (s *Server) handlePaymentsSetFeePolicy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params paymentsSetFeePolicyParams
	if !decodeParams(w, req, &params) {
		return
	}
	if err := s.ledger.SetFeePolicy(r.Context(), caller, params.Policy); err != nil {
		writeLedgerError(w, req.ID, "failed to update fee policy", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

type pausedResult struct {
	Paused bool `json:"paused"`
}

func (s *Server) handlePaymentsPause(w http.ResponseWriter, r *http.Request, req *RPCRequest, pause bool) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var err error
	if pause {
		err = s.ledger.PausePayments(r.Context(), caller)
	} else {
		err = s.ledger.UnpausePayments(r.Context(), caller)
	}
	if err != nil {
		writeLedgerError(w, req.ID, "failed to update pause state", err)
		return
	}
	writeResult(w, req.ID, pausedResult{Paused: s.ledger.PaymentsPaused()})
}
