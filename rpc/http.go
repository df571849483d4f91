package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"padipay/core"
	"padipay/observability"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader        = "X-Request-ID"
)

type ctxKey string

const requestIDKey ctxKey = "rpc.request_id"

// ServerConfig tunes the JSON-RPC listener.
type ServerConfig struct {
	JWTSecret         string
	JWTIssuer         string
	RateLimitPerSec   float64
	RateLimitBurst    int
	MaxBodyBytes      int64
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

type Server struct {
	ledger  *core.Ledger
	cfg     ServerConfig
	auth    *Authenticator
	limiter *rateLimiter
	hub     *EventHub
	logger  *slog.Logger
}

// NewServer builds the RPC server over ledger. hub may be nil, in which case
// /events is not served.
func NewServer(ledger *core.Ledger, hub *EventHub, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if ledger == nil {
		return nil, fmt.Errorf("rpc: ledger required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxRequestBytes
	}
	return &Server{
		ledger:  ledger,
		cfg:     cfg,
		auth:    NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		limiter: newRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		hub:     hub,
		logger:  logger,
	}, nil
}

// Handler returns the HTTP routes: JSON-RPC on POST /, the event stream,
// Prometheus metrics and a health probe.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Post("/", s.handle)
	if s.hub != nil {
		r.Get("/events", s.handleEventsWS)
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "height": s.ledger.Height()})
	})
	return otelhttp.NewHandler(r, "padipay.rpc")
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("JSON-RPC server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.hub != nil {
			s.hub.Close()
		}
		return srv.Shutdown(shutdownCtx)
	}
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	method := ""
	defer func() {
		module := "rpc"
		if idx := strings.Index(method, "_"); idx > 0 {
			module = method[:idx]
		}
		observability.ModuleMetrics().Observe(module, method, rec.status, time.Since(started))
		s.logger.Debug("rpc request",
			slog.String("request_id", requestID(r.Context())),
			slog.String("method", method),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(started)))
	}()
	w = rec

	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()
	w.Header().Set("Content-Type", "application/json")

	if !s.limiter.allow(clientSource(r)) {
		observability.ModuleMetrics().RecordThrottle("rpc", "rate")
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	method = req.Method

	switch req.Method {
	case "ledger_status":
		s.handleLedgerStatus(w, r, req)
	case "events_list":
		s.handleEventsList(w, r, req)
	case "registry_register":
		s.handleRegistryRegister(w, r, req)
	case "registry_unregister":
		s.handleRegistryUnregister(w, r, req)
	case "registry_batchRegister":
		s.handleRegistryBatchRegister(w, r, req)
	case "registry_hash":
		s.handleRegistryHash(w, r, req)
	case "registry_isRegistered":
		s.handleRegistryIsRegistered(w, r, req)
	case "registry_resolve":
		s.handleRegistryResolve(w, r, req)
	case "registry_reverse":
		s.handleRegistryReverse(w, r, req)
	case "registry_setVerifier":
		s.handleRegistrySetVerifier(w, r, req)
	case "escrow_addSupportedAsset":
		s.handleEscrowSetSupported(w, r, req, true)
	case "escrow_removeSupportedAsset":
		s.handleEscrowSetSupported(w, r, req, false)
	case "escrow_supportedAssets":
		s.handleEscrowSupportedAssets(w, r, req)
	case "escrow_claim":
		s.handleEscrowClaim(w, r, req)
	case "escrow_claimableAmount":
		s.handleEscrowClaimableAmount(w, r, req)
	case "payments_send":
		s.handlePaymentsSend(w, r, req)
	case "payments_get":
		s.handlePaymentsGet(w, r, req)
	case "payments_pending":
		s.handlePaymentsPending(w, r, req)
	case "payments_stats":
		s.handlePaymentsStats(w, r, req)
	case "payments_feePolicy":
		s.handlePaymentsFeePolicy(w, r, req)
	case "payments_setFeePolicy":
		s.handlePaymentsSetFeePolicy(w, r, req)
	case "payments_pause":
		s.handlePaymentsPause(w, r, req, true)
	case "payments_unpause":
		s.handlePaymentsPause(w, r, req, false)
	case "wallet_computeAddress":
		s.handleWalletComputeAddress(w, r, req)
	case "wallet_deploy":
		s.handleWalletDeploy(w, r, req)
	case "wallet_assignOwner":
		s.handleWalletAssignOwner(w, r, req)
	case "wallet_handleOp":
		s.handleWalletHandleOp(w, r, req)
	case "wallet_nonce":
		s.handleWalletNonce(w, r, req)
	case "wallet_get":
		s.handleWalletGet(w, r, req)
	case "bank_balance":
		s.handleBankBalance(w, r, req)
	case "bank_allowance":
		s.handleBankAllowance(w, r, req)
	case "bank_assets":
		s.handleBankAssets(w, r, req)
	case "bank_approve":
		s.handleBankApprove(w, r, req)
	case "bank_transfer":
		s.handleBankTransfer(w, r, req)
	case "bank_mint":
		s.handleBankMint(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

// requireCaller authenticates the request, writing the error response on
// failure.
func (s *Server) requireCaller(w http.ResponseWriter, r *http.Request, req *RPCRequest) ([20]byte, bool) {
	caller, authErr := s.auth.Caller(r)
	if authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return [20]byte{}, false
	}
	return caller, true
}

// decodeParams reads the single parameter object of req into out.
func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected a single parameter object", nil)
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func invalidParam(w http.ResponseWriter, req *RPCRequest, field string, err error) {
	writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid "+field, err.Error())
}

type ledgerStatusResult struct {
	ChainID   uint64 `json:"chainId"`
	Height    uint64 `json:"height"`
	StateRoot string `json:"stateRoot"`
}

func (s *Server) handleLedgerStatus(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	status := s.ledger.Status()
	writeResult(w, req.ID, ledgerStatusResult{
		ChainID:   status.ChainID,
		Height:    status.Height,
		StateRoot: status.StateRoot.Hex(),
	})
}
