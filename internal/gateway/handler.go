// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     gateway
// Description: HTTP and WebSocket front end for the parse service
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/health"
	"github.com/msto63/callexpr/pkg/core/logging"
	"github.com/msto63/callexpr/pkg/core/version"
)

// ParseRequest is the body of POST /api/v1/parse and /api/v1/tokenize
type ParseRequest struct {
	Expression string `json:"expression"`
	Format     string `json:"format,omitempty"` // optional rendering: text, tree, yaml
}

// BatchRequest is the body of POST /api/v1/parse/batch
type BatchRequest struct {
	Expressions []string `json:"expressions"`
}

// ParseResponse is a successful parse
type ParseResponse struct {
	RequestID  string       `json:"request_id"`
	Tree       *ast.Command `json:"tree"`
	Canonical  string       `json:"canonical"`
	Depth      int          `json:"depth"`
	Commands   int          `json:"commands"`
	Tokens     int          `json:"tokens"`
	DurationUS int64        `json:"duration_us"`
	Rendered   string       `json:"rendered,omitempty"`
}

// BatchItem is one entry of a batch response
type BatchItem struct {
	Index     int            `json:"index"`
	OK        bool           `json:"ok"`
	Tree      *ast.Command   `json:"tree,omitempty"`
	Canonical string         `json:"canonical,omitempty"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse is the body returned by POST /api/v1/parse/batch
type BatchResponse struct {
	Results []BatchItem `json:"results"`
	Failed  int         `json:"failed"`
}

// TokensResponse is the body returned by POST /api/v1/tokenize
type TokensResponse struct {
	Tokens []render.TokenView `json:"tokens"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Offset  *int   `json:"offset,omitempty"`
}

// Handler serves the REST API
type Handler struct {
	service   *service.Service
	history   store.Store
	health    *health.Registry
	logger    *logging.Logger
	maxBody   int64
	startTime time.Time
}

// NewHandler creates a new REST handler. history may be nil.
func NewHandler(svc *service.Service, history store.Store, registry *health.Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.New("callexpr-handler")
	}
	return &Handler{
		service:   svc,
		history:   history,
		health:    registry,
		logger:    logger,
		maxBody:   int64(svc.Parser().Options().MaxInputLength)*2 + 4096,
		startTime: time.Now(),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Route requests
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		h.handleRoot(w, r)
	case path == "health":
		h.handleHealth(w, r)
	case path == "parse":
		h.handleParse(w, r)
	case path == "parse/batch":
		h.handleBatch(w, r)
	case path == "tokenize":
		h.handleTokenize(w, r)
	case path == "history":
		h.handleHistory(w, r)
	case path == "history/stats":
		h.handleHistoryStats(w, r)
	case strings.HasPrefix(path, "history/"):
		h.handleHistoryEntry(w, r, strings.TrimPrefix(path, "history/"))
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Endpoint not found", "")
	}
}

// handleRoot handles the root endpoint
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service":  "callexpr",
		"version":  version.Get(),
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
		"counters": h.service.Counters(),
		"endpoints": []string{
			"GET  /api/v1/health",
			"POST /api/v1/parse",
			"POST /api/v1/parse/batch",
			"POST /api/v1/tokenize",
			"GET  /api/v1/history",
			"GET  /api/v1/history/stats",
			"GET  /api/v1/history/{id}",
			"GET  /api/v1/ws",
		},
	}
	if stats, ok := h.service.CacheStats(); ok {
		info["cache"] = stats
	}
	h.writeJSON(w, http.StatusOK, info)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	report := h.health.Check(ctx)

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report)
}

// handleParse handles POST /api/v1/parse
func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var req ParseRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := parseResponse(service.WithSource(r.Context(), store.SourceHTTP), h.service, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// parseResponse runs a parse and builds its response. It is shared with the
// WebSocket handler.
func parseResponse(ctx context.Context, svc *service.Service, req ParseRequest) (*ParseResponse, error) {
	var renderer *render.Renderer
	if req.Format != "" {
		format, err := render.ParseFormat(req.Format)
		if err != nil {
			return nil, err
		}
		renderer = render.New(format, false)
	}

	result, err := svc.Parse(ctx, req.Expression)
	if err != nil {
		return nil, err
	}

	resp := &ParseResponse{
		RequestID:  result.RequestID,
		Tree:       result.Command,
		Canonical:  result.Command.String(),
		Depth:      result.Depth,
		Commands:   result.Commands,
		Tokens:     result.Tokens,
		DurationUS: result.Duration.Microseconds(),
	}
	if renderer != nil {
		var buf bytes.Buffer
		tokens, _ := svc.Tokenize(ctx, req.Expression)
		if err := renderer.Command(&buf, result.Command, tokens); err != nil {
			return nil, err
		}
		resp.Rendered = buf.String()
	}
	return resp, nil
}

// handleBatch handles POST /api/v1/parse/batch
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var req BatchRequest
	if !h.decodeLimited(w, r, &req, 0) {
		return
	}

	items, err := h.service.ParseBatch(service.WithSource(r.Context(), store.SourceHTTP), req.Expressions)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := BatchResponse{Results: make([]BatchItem, len(items))}
	for i, item := range items {
		out := BatchItem{Index: item.Index, OK: item.Err == nil}
		if item.Err != nil {
			out.Error = errorResponse(item.Err)
			resp.Failed++
		} else {
			out.Tree = item.Result.Command
			out.Canonical = item.Result.Command.String()
		}
		resp.Results[i] = out
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleTokenize handles POST /api/v1/tokenize
func (h *Handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var req ParseRequest
	if !h.decode(w, r, &req) {
		return
	}

	tokens, err := h.service.Tokenize(r.Context(), req.Expression)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TokensResponse{Tokens: render.TokenList(tokens)})
}

// handleHistory handles GET /api/v1/history
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !h.historyEnabled(w, r) {
		return
	}

	q := r.URL.Query()
	filter := store.Filter{
		Status:    q.Get("status"),
		ErrorCode: q.Get("code"),
		Source:    store.Source(q.Get("source")),
		Contains:  q.Get("q"),
		Limit:     50,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid limit", v)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid offset", v)
			return
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid since duration", v)
			return
		}
		filter.Since = time.Now().Add(-d)
	}

	entries, err := h.history.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*store.Entry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// handleHistoryStats handles GET /api/v1/history/stats
func (h *Handler) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	if !h.historyEnabled(w, r) {
		return
	}
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// handleHistoryEntry handles GET /api/v1/history/{id}
func (h *Handler) handleHistoryEntry(w http.ResponseWriter, r *http.Request, id string) {
	if !h.historyEnabled(w, r) {
		return
	}
	entry, err := h.history.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) historyEnabled(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return false
	}
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "history_disabled", "Parse history is not enabled", "")
		return false
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return h.decodeLimited(w, r, v, h.maxBody)
}

// decodeLimited reads a JSON body of at most limit bytes; 0 means no limit
func (h *Handler) decodeLimited(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) bool {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", err.Error())
		return false
	}
	return true
}

// writeJSON encodes v before writing the status, so an encoding failure
// becomes a 500 INTERNAL response instead of an empty body
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.LogError(mdwerror.Wrap(err, "failed to encode response").
			WithCode(mdwerror.CodeInternal).
			WithOperation("gateway.writeJSON"))
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(&ErrorResponse{
			Error: "failed to encode response",
			Code:  mdwerror.CodeInternal.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(mdwerror.GetCode(err))
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err.Error())
	}
	h.writeJSON(w, status, errorResponse(err))
}

func errorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{
		Error: err.Error(),
		Code:  mdwerror.GetCode(err).String(),
	}
	if offset, ok := parser.ErrorOffset(err); ok {
		resp.Offset = &offset
	}
	return resp
}

// StatusFor maps an error code to an HTTP status
func StatusFor(code mdwerror.Code) int {
	switch code {
	case mdwerror.CodeMalformedExpression, mdwerror.CodeEmptyExpression,
		mdwerror.CodeUnterminatedQuote, mdwerror.CodeDepthExceeded:
		return http.StatusUnprocessableEntity
	case mdwerror.CodeInvalidInput:
		return http.StatusBadRequest
	case mdwerror.CodeInputTooLong:
		return http.StatusRequestEntityTooLarge
	case mdwerror.CodeNotFound:
		return http.StatusNotFound
	case mdwerror.CodeTimeout:
		return http.StatusGatewayTimeout
	case mdwerror.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
