package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"stakehub/core/events"
	"stakehub/native/common"
	"stakehub/native/staking"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeModulePaused   = -32030
)

const stakingModulePausedMessage = "staking module paused"

// Server exposes the staking engine over JSON-RPC 2.0. Mutating methods
// require a bearer token and are throttled per source address.
type Server struct {
	engine *staking.Engine

	mu        sync.Mutex
	quota     common.Quota
	usage     map[string]common.QuotaNow
	authToken string
	nowFn     func() time.Time
	log       *slog.Logger
	stream    *events.Stream
}

func NewServer(engine *staking.Engine) *Server {
	token := strings.TrimSpace(os.Getenv("STAKEHUB_RPC_TOKEN"))
	return &Server{
		engine:    engine,
		usage:     make(map[string]common.QuotaNow),
		authToken: token,
		nowFn:     time.Now,
		log:       slog.Default(),
	}
}

// SetQuota installs the per-source throttle for mutating methods. A
// zero-valued quota disables throttling.
func (s *Server) SetQuota(quota common.Quota) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota = quota
}

// SetAuthToken overrides the token read from the environment.
func (s *Server) SetAuthToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authToken = strings.TrimSpace(token)
}

// SetNowFunc overrides the clock used for quota epochs.
func (s *Server) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// SetLogger overrides the request logger.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

// SetStream attaches the ledger event stream served on /ws/events.
func (s *Server) SetStream(stream *events.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
}

// Handler returns the full HTTP mux: the JSON-RPC endpoint at the root plus
// health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws/events", s.handleEventsWS)
	return mux
}

func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
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
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
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

	s.log.Debug("rpc request",
		"requestId", uuid.NewString(),
		"method", req.Method,
		"source", clientSource(r))

	switch req.Method {
	case "staking_stake":
		s.mutating(w, r, req, s.handleStake)
	case "staking_stakeLegacyA":
		s.mutating(w, r, req, s.handleStakeLegacyA)
	case "staking_stakeLegacyB":
		s.mutating(w, r, req, s.handleStakeLegacyB)
	case "staking_topUp":
		s.mutating(w, r, req, s.handleTopUp)
	case "staking_topUpLegacyA":
		s.mutating(w, r, req, s.handleTopUpLegacyA)
	case "staking_topUpLegacyB":
		s.mutating(w, r, req, s.handleTopUpLegacyB)
	case "staking_unstake":
		s.mutating(w, r, req, s.handleUnstake)
	case "staking_unstakeLegacyA":
		s.mutating(w, r, req, s.handleUnstakeLegacyA)
	case "staking_unstakeLegacyB":
		s.mutating(w, r, req, s.handleUnstakeLegacyB)
	case "staking_unstakeAll":
		s.mutating(w, r, req, s.handleUnstakeAll)
	case "staking_increaseAuthorization":
		s.mutating(w, r, req, s.handleIncreaseAuthorization)
	case "staking_requestAuthorizationDecrease":
		s.mutating(w, r, req, s.handleRequestAuthorizationDecrease)
	case "staking_requestAuthorizationDecreaseEverywhere":
		s.mutating(w, r, req, s.handleRequestAuthorizationDecreaseEverywhere)
	case "staking_approveAuthorizationDecrease":
		s.mutating(w, r, req, s.handleApproveAuthorizationDecrease)
	case "staking_slash":
		s.mutating(w, r, req, s.handleSlash)
	case "staking_seize":
		s.mutating(w, r, req, s.handleSeize)
	case "staking_processSlashing":
		s.mutating(w, r, req, s.handleProcessSlashing)
	case "staking_notifyLegacyADiscrepancy":
		s.mutating(w, r, req, s.handleNotifyLegacyADiscrepancy)
	case "staking_notifyLegacyBDiscrepancy":
		s.mutating(w, r, req, s.handleNotifyLegacyBDiscrepancy)
	case "staking_topUpTreasury":
		s.mutating(w, r, req, s.handleTopUpTreasury)
	case "staking_approveApplication":
		s.mutating(w, r, req, s.handleApproveApplication)
	case "staking_setPanicButton":
		s.mutating(w, r, req, s.handleSetPanicButton)
	case "staking_disableApplication":
		s.mutating(w, r, req, s.handleDisableApplication)
	case "staking_setMinimumStake":
		s.mutating(w, r, req, s.handleSetMinimumStake)
	case "staking_setAuthorizationCeiling":
		s.mutating(w, r, req, s.handleSetAuthorizationCeiling)
	case "staking_setNotificationReward":
		s.mutating(w, r, req, s.handleSetNotificationReward)
	case "staking_setDiscrepancyPenalty":
		s.mutating(w, r, req, s.handleSetDiscrepancyPenalty)
	case "staking_operatorInfo":
		s.handleOperatorInfo(w, r, req)
	case "staking_availableToAuthorize":
		s.handleAvailableToAuthorize(w, r, req)
	case "staking_authorizedAmount":
		s.handleAuthorizedAmount(w, r, req)
	case "staking_eligibleStake":
		s.handleEligibleStake(w, r, req)
	case "staking_authorizedApplications":
		s.handleAuthorizedApplications(w, r, req)
	case "staking_maxAuthorization":
		s.handleMaxAuthorization(w, r, req)
	case "staking_hasStakeDelegated":
		s.handleHasStakeDelegated(w, r, req)
	case "staking_minStaked":
		s.handleMinStaked(w, r, req)
	case "staking_applicationInfo":
		s.handleApplicationInfo(w, r, req)
	case "staking_params":
		s.handleParams(w, r, req)
	case "staking_slashingQueue":
		s.handleSlashingQueue(w, r, req)
	case "staking_pendingSlashes":
		s.handlePendingSlashes(w, r, req)
	case "staking_treasuryBalance":
		s.handleTreasuryBalance(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

// mutating wraps a handler with the bearer token check and the per-source
// quota. The quota charges one request per call; amounts are charged by the
// handlers that carry one.
func (s *Server) mutating(w http.ResponseWriter, r *http.Request, req *RPCRequest, next handlerFunc) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	source := clientSource(r)
	if err := s.chargeQuota(source, 1, nil); err != nil {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", source)
		return
	}
	next(w, r, req)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	s.mu.Lock()
	authToken := s.authToken
	s.mu.Unlock()

	if authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// chargeQuota counts a call against the source's quota window. Amounts beyond
// uint64 range saturate, which trips any configured amount cap.
func (s *Server) chargeQuota(source string, reqs uint32, amount *big.Int) error {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota.EpochSeconds == 0 {
		return nil
	}
	var addAmount uint64
	if amount != nil && amount.Sign() > 0 {
		if amount.IsUint64() {
			addAmount = amount.Uint64()
		} else {
			addAmount = math.MaxUint64
		}
	}
	epoch := uint64(s.nowFn().Unix()) / uint64(s.quota.EpochSeconds)
	next, err := common.CheckQuota(s.quota, epoch, s.usage[source], reqs, addAmount)
	if err != nil {
		return err
	}
	s.usage[source] = next
	return nil
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeEngineError translates engine sentinel errors into RPC error shapes.
func writeEngineError(w http.ResponseWriter, id interface{}, action string, err error) {
	switch {
	case errors.Is(err, common.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, id, codeModulePaused, stakingModulePausedMessage, nil)
	case errors.Is(err, staking.ErrUnauthorizedCaller):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, action, err.Error())
	case errors.Is(err, staking.ErrOperatorNotFound),
		errors.Is(err, staking.ErrApplicationNotApproved):
		writeError(w, http.StatusNotFound, id, codeInvalidParams, action, err.Error())
	default:
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, action, err.Error())
	}
}
