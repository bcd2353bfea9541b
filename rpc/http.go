package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"collectvault/core"
	"collectvault/crypto"
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
)

type Server struct {
	node      *core.Node
	authToken string
}

func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv("CVT_RPC_TOKEN"))
	return &Server{node: node, authToken: token}
}

// SetAuthToken overrides the bearer token required by mutating methods.
func (s *Server) SetAuthToken(token string) {
	s.authToken = strings.TrimSpace(token)
}

func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the HTTP handler serving the JSON-RPC surface plus the
// prometheus scrape endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
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

	switch req.Method {
	case "vault_openLoan":
		s.authorized(w, r, req, s.handleLoanOpen)
	case "vault_fundLoan":
		s.authorized(w, r, req, s.handleLoanFund)
	case "vault_repayLoan":
		s.authorized(w, r, req, s.handleLoanRepay)
	case "vault_claimDefault":
		s.authorized(w, r, req, s.handleLoanClaimDefault)
	case "vault_cancelLoan":
		s.authorized(w, r, req, s.handleLoanCancel)
	case "vault_getLoan":
		s.handleLoanGet(w, r, req)
	case "vault_openRedemption":
		s.authorized(w, r, req, s.handleRedemptionOpen)
	case "vault_cancelRedemption":
		s.authorized(w, r, req, s.handleRedemptionCancel)
	case "vault_fulfillRedemption":
		s.authorized(w, r, req, s.handleRedemptionFulfill)
	case "vault_getRedemption":
		s.handleRedemptionGet(w, r, req)
	case "vault_getBalance":
		s.handleGetBalance(w, r, req)
	case "vault_recentEvents":
		s.handleRecentEvents(w, r, req)
	case "assets_createCollection":
		s.authorized(w, r, req, s.handleAssetsCreateCollection)
	case "assets_mint":
		s.authorized(w, r, req, s.handleAssetsMint)
	case "assets_transfer":
		s.authorized(w, r, req, s.handleAssetsTransfer)
	case "assets_burn":
		s.authorized(w, r, req, s.handleAssetsBurn)
	case "assets_get":
		s.handleAssetsGet(w, r, req)
	case "audit_request":
		s.authorized(w, r, req, s.handleAuditRequest)
	case "audit_provideSnapshot":
		s.authorized(w, r, req, s.handleAuditProvideSnapshot)
	case "audit_reject":
		s.authorized(w, r, req, s.handleAuditReject)
	case "audit_getRequest":
		s.handleAuditGetRequest(w, r, req)
	case "audit_getSnapshots":
		s.handleAuditGetSnapshots(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request, *RPCRequest)

// authorized gates mutating methods behind the shared bearer token.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request, req *RPCRequest, next handlerFunc) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	next(w, r, req)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
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
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func parseBech32Address(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address must not be empty")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseAssetID(value string) ([32]byte, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return [32]byte{}, fmt.Errorf("invalid asset id: %w", err)
	}
	if len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("asset id must be 32 bytes, got %d", len(raw))
	}
	var id [32]byte
	copy(id[:], raw)
	return id, nil
}

func formatAssetID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func formatAddress(b [20]byte) string {
	return crypto.MustNewAddress(b).String()
}
