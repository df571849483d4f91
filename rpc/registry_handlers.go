package rpc

import (
	"fmt"
	"log/slog"
	"net/http"

	"padipay/native/registry"
	"padipay/observability/logging"
)

type registryRegisterParams struct {
	Fingerprint string `json:"fingerprint"`
	Address     string `json:"address,omitempty"`
}

type registryBatchParams struct {
	Entries []registryRegisterParams `json:"entries"`
}

type registryFingerprintParams struct {
	Fingerprint string `json:"fingerprint"`
}

type registryHashParams struct {
	Phone string `json:"phone"`
}

type registryAddressParams struct {
	Address string `json:"address"`
}

type registrySetVerifierParams struct {
	Verifier string `json:"verifier"`
	Enabled  bool   `json:"enabled"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func (s *Server) handleRegistryRegister(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params registryRegisterParams
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
	if err := s.ledger.Register(r.Context(), caller, fp, addr); err != nil {
		writeLedgerError(w, req.ID, "failed to register fingerprint", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleRegistryUnregister(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params registryFingerprintParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	if err := s.ledger.Unregister(r.Context(), caller, fp); err != nil {
		writeLedgerError(w, req.ID, "failed to unregister fingerprint", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

type registryBatchResult struct {
	Written int `json:"written"`
}

func (s *Server) handleRegistryBatchRegister(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params registryBatchParams
	if !decodeParams(w, req, &params) {
		return
	}
	fps := make([][32]byte, 0, len(params.Entries))
	addrs := make([][20]byte, 0, len(params.Entries))
	for i, entry := range params.Entries {
		fp, err := parseHash(entry.Fingerprint)
		if err != nil {
			invalidParam(w, req, fmt.Sprintf("entries[%d].fingerprint", i), err)
			return
		}
		addr, err := parseAddress(entry.Address)
		if err != nil {
			invalidParam(w, req, fmt.Sprintf("entries[%d].address", i), err)
			return
		}
		fps = append(fps, fp)
		addrs = append(addrs, addr)
	}
	written, err := s.ledger.BatchRegister(r.Context(), caller, fps, addrs)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to batch register", err)
		return
	}
	writeResult(w, req.ID, registryBatchResult{Written: written})
}

type registryHashResult struct {
	Fingerprint string `json:"fingerprint"`
}

func (s *Server) handleRegistryHash(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryHashParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := registry.HashStrict(params.Phone)
	if err != nil {
		invalidParam(w, req, "phone", err)
		return
	}
	s.logger.Debug("registry hash",
		slog.String("request_id", requestID(r.Context())),
		logging.MaskField("phone", params.Phone))
	writeResult(w, req.ID, registryHashResult{Fingerprint: formatHash(fp)})
}

type registryIsRegisteredResult struct {
	Registered bool `json:"registered"`
}

func (s *Server) handleRegistryIsRegistered(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryFingerprintParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	registered, err := s.ledger.IsRegistered(fp)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to query registry", err)
		return
	}
	writeResult(w, req.ID, registryIsRegisteredResult{Registered: registered})
}

func (s *Server) handleRegistryResolve(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryFingerprintParams
	if !decodeParams(w, req, &params) {
		return
	}
	fp, err := parseHash(params.Fingerprint)
	if err != nil {
		invalidParam(w, req, "fingerprint", err)
		return
	}
	entry, err := s.ledger.RegistryEntry(fp)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load registry entry", err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusConflict, req.ID, codeStateConflict, "fingerprint not registered", params.Fingerprint)
		return
	}
	writeResult(w, req.ID, registryEntryResultFrom(entry))
}

func (s *Server) handleRegistryReverse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryAddressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		invalidParam(w, req, "address", err)
		return
	}
	fp, err := s.ledger.Reverse(addr)
	if err != nil {
		writeLedgerError(w, req.ID, "address not registered", err)
		return
	}
	writeResult(w, req.ID, registryFingerprintParams{Fingerprint: formatHash(fp)})
}

func (s *Server) handleRegistrySetVerifier(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.requireCaller(w, r, req)
	if !ok {
		return
	}
	var params registrySetVerifierParams
	if !decodeParams(w, req, &params) {
		return
	}
	verifier, err := parseAddress(params.Verifier)
	if err != nil {
		invalidParam(w, req, "verifier", err)
		return
	}
	if err := s.ledger.SetVerifier(r.Context(), caller, verifier, params.Enabled); err != nil {
		writeLedgerError(w, req.ID, "failed to update verifier", err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}
