package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakevault/crypto"
	"stakevault/native/bank"
	"stakevault/native/registry"
	"stakevault/native/stake"
	"stakevault/observability"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001

	codeStakeUnauthorized   = -32021
	codeStakeDisabled       = -32022
	codeStakeEpochInactive  = -32023
	codeStakeInvalidDeposit = -32024
	codeStakeDuplicate      = -32025
	codeStakeNotFound       = -32026
	codeStakeLockViolation  = -32027
	codeStakeNoReward       = -32028
	codeStakeInsufficient   = -32029
	codeStakeInvalidAirdrop = -32030
	codeStakeNoRecipients   = -32031
)

// Server exposes the staking ledger over JSON-RPC 2.0. One request is handled
// at a time end-to-end, matching the serialized transaction model the engine
// assumes.
type Server struct {
	engine   *stake.Engine
	ledger   *bank.Ledger
	registry *registry.Registry
	vault    [20]byte

	authToken string
	logger    *slog.Logger
	metrics   *observability.ModuleMetrics
}

// NewServer wires the RPC surface. The bearer token for mutating methods is
// read from STAKEVAULT_RPC_TOKEN; when unset, mutating methods are open
// (local development mode).
func NewServer(engine *stake.Engine, ledger *bank.Ledger, reg *registry.Registry, vault [20]byte, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		ledger:    ledger,
		registry:  reg,
		vault:     vault,
		authToken: strings.TrimSpace(os.Getenv("STAKEVAULT_RPC_TOKEN")),
		logger:    logger,
		metrics:   observability.Metrics(),
	}
}

// Start serves the RPC endpoint and the prometheus metrics handler until the
// listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) != s.authToken {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid bearer token"}
	}
	return nil
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

func (s *Server) routes() (map[string]handlerFunc, map[string]bool) {
	handlers := map[string]handlerFunc{
		"stake_deposit":          s.handleDeposit,
		"stake_withdraw":         s.handleWithdraw,
		"stake_renew":            s.handleRenew,
		"stake_claim":            s.handleClaim,
		"stake_announceAirdrop":  s.handleAnnounceAirdrop,
		"stake_restartEpoch":     s.handleRestartEpoch,
		"stake_setOwner":         s.handleSetOwner,
		"stake_setFeeAddress":    s.handleSetFeeAddress,
		"stake_setCollection":    s.handleSetCollection,
		"stake_setDuration":      s.handleSetDuration,
		"stake_setUnstakeFee":    s.handleSetUnstakeFee,
		"stake_setEnabled":       s.handleSetEnabled,
		"stake_updateConfig":     s.handleUpdateConfig,
		"stake_withdrawTreasury": s.handleWithdrawTreasury,
		"stake_getConfig":        s.handleGetConfig,
		"stake_getTotalEarned":   s.handleGetTotalEarned,
		"stake_getTotalLocked":   s.handleGetTotalLocked,
		"stake_getStakedRecords": s.handleGetStakedRecords,
		"bank_getBalance":        s.handleBankGetBalance,
		"bank_mint":              s.handleBankMint,
		"registry_mint":          s.handleRegistryMint,
		"registry_ownerOf":       s.handleRegistryOwnerOf,
	}
	queries := map[string]bool{
		"stake_getConfig":        true,
		"stake_getTotalEarned":   true,
		"stake_getTotalLocked":   true,
		"stake_getStakedRecords": true,
		"bank_getBalance":        true,
		"registry_ownerOf":       true,
	}
	return handlers, queries
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unable to read request body", err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handlers, queries := s.routes()
	handler, ok := handlers[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if !queries[req.Method] {
		if authErr := s.requireAuth(r); authErr != nil {
			s.metrics.ObserveError(req.Method, strconv.Itoa(authErr.Code))
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(recorder, r, req)
	outcome := "ok"
	if recorder.status >= http.StatusBadRequest {
		outcome = "error"
	}
	s.metrics.ObserveRequest(req.Method, outcome, start)
}

// statusRecorder captures the status code a handler wrote so the request
// counter can label success and failure separately.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// decodeSingleParam unmarshals the single parameter object every method
// expects.
func decodeSingleParam(req *RPCRequest, target interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], target)
}

func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.StakePrefix, addr[:]).String()
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

// parseNonNegativeBigInt accepts zero, for values like the unstake fee that
// can legitimately be cleared.
func parseNonNegativeBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}
	return amount, nil
}

// writeEngineError maps engine sentinel errors onto JSON-RPC error codes and
// HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, req *RPCRequest, err error) {
	status := http.StatusInternalServerError
	code := codeServerError
	switch {
	case errors.Is(err, stake.ErrUnauthorized):
		status, code = http.StatusForbidden, codeStakeUnauthorized
	case errors.Is(err, stake.ErrDisabled):
		status, code = http.StatusServiceUnavailable, codeStakeDisabled
	case errors.Is(err, stake.ErrEpochNotStarted):
		status, code = http.StatusConflict, codeStakeEpochInactive
	case errors.Is(err, stake.ErrInvalidDeposit):
		status, code = http.StatusBadRequest, codeStakeInvalidDeposit
	case errors.Is(err, stake.ErrDuplicateStake):
		status, code = http.StatusConflict, codeStakeDuplicate
	case errors.Is(err, stake.ErrNoSuchStake):
		status, code = http.StatusNotFound, codeStakeNotFound
	case errors.Is(err, stake.ErrLockViolation):
		status, code = http.StatusConflict, codeStakeLockViolation
	case errors.Is(err, stake.ErrNoReward):
		status, code = http.StatusConflict, codeStakeNoReward
	case errors.Is(err, stake.ErrInsufficientFunds):
		status, code = http.StatusConflict, codeStakeInsufficient
	case errors.Is(err, stake.ErrInvalidAirdropAmount):
		status, code = http.StatusBadRequest, codeStakeInvalidAirdrop
	case errors.Is(err, stake.ErrNoEligibleRecipients):
		status, code = http.StatusConflict, codeStakeNoRecipients
	case errors.Is(err, bank.ErrInsufficientBalance):
		status, code = http.StatusConflict, codeStakeInsufficient
	case errors.Is(err, registry.ErrUnknownItem), errors.Is(err, registry.ErrNotOwner):
		status, code = http.StatusBadRequest, codeStakeInvalidDeposit
	}
	s.metrics.ObserveError(req.Method, strconv.Itoa(code))
	writeError(w, status, req.ID, code, err.Error(), nil)
}
