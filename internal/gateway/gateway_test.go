// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     gateway
// Description: Tests for the REST and WebSocket gateway
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
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/logging"
)

type testGateway struct {
	server  *httptest.Server
	history *store.SQLiteStore
}

func newTestGateway(t *testing.T, withHistory bool) *testGateway {
	t.Helper()
	return newTestGatewayWith(t, parser.Options{MaxInputLength: 64}, withHistory)
}

func newTestGatewayWith(t *testing.T, opts parser.Options, withHistory bool) *testGateway {
	t.Helper()

	tg := &testGateway{}
	svcCfg := service.Config{
		Logger: logging.Wrap(nil),
		Parser: opts,
	}
	if withHistory {
		history, err := store.NewSQLiteStore(store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { history.Close() })
		tg.history = history
		svcCfg.Recorder = history
	}

	svc, err := service.NewService(svcCfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Service = svc
	cfg.Logger = logging.Wrap(nil)
	if tg.history != nil {
		cfg.History = tg.history
	}
	gw, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tg.server = httptest.NewServer(gw.Handler())
	t.Cleanup(tg.server.Close)
	return tg
}

func (tg *testGateway) post(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(tg.server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("POST %s: invalid JSON response: %v", path, err)
	}
	return resp, out
}

func (tg *testGateway) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(tg.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("GET %s: invalid JSON response: %v", path, err)
	}
	return resp, out
}

func TestParseEndpoint(t *testing.T) {
	tg := newTestGateway(t, false)

	resp, body := tg.post(t, "/api/v1/parse", ParseRequest{Expression: `Foo(1, "a,b", Bar())`, Format: "tree"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["canonical"] != `Foo(1, "a,b", Bar())` {
		t.Errorf("canonical = %v", body["canonical"])
	}
	if resp.Header.Get(RequestIDHeader) == "" || body["request_id"] != resp.Header.Get(RequestIDHeader) {
		t.Errorf("request_id = %v, header = %q", body["request_id"], resp.Header.Get(RequestIDHeader))
	}
	if !strings.HasPrefix(body["rendered"].(string), "Foo\n") {
		t.Errorf("rendered = %q", body["rendered"])
	}

	tree, err := ast.FromMap(body["tree"].(map[string]interface{}))
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	want := ast.NewCommand("Foo", ast.Lit("1"), ast.Quoted("a,b"), ast.Nest(ast.NewCommand("Bar")))
	if !ast.Equal(tree, want) {
		t.Errorf("tree = %s, want %s", tree, want)
	}
}

func TestParseEndpoint_RequestIDPropagation(t *testing.T) {
	tg := newTestGateway(t, false)

	data, _ := json.Marshal(ParseRequest{Expression: "Foo()"})
	req, _ := http.NewRequest(http.MethodPost, tg.server.URL+"/api/v1/parse", bytes.NewReader(data))
	req.Header.Set(RequestIDHeader, "client-7")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer resp.Body.Close()

	var body ParseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body.RequestID != "client-7" {
		t.Errorf("request_id = %q, want client-7", body.RequestID)
	}
}

func TestParseEndpoint_Errors(t *testing.T) {
	tg := newTestGateway(t, false)

	tests := []struct {
		name       string
		expr       string
		wantStatus int
		wantCode   string
		wantOffset float64
	}{
		{name: "malformed", expr: "Foo(1))", wantStatus: http.StatusUnprocessableEntity, wantCode: "MALFORMED_EXPRESSION", wantOffset: 6},
		{name: "unterminated", expr: `Foo("x`, wantStatus: http.StatusUnprocessableEntity, wantCode: "UNTERMINATED_QUOTE", wantOffset: 4},
		{name: "too long", expr: "Foo(" + strings.Repeat("x", 80) + ")", wantStatus: http.StatusRequestEntityTooLarge, wantCode: "INPUT_TOO_LONG", wantOffset: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := tg.post(t, "/api/v1/parse", ParseRequest{Expression: tt.expr})
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
			if tt.wantOffset >= 0 && body["offset"] != tt.wantOffset {
				t.Errorf("offset = %v, want %v", body["offset"], tt.wantOffset)
			}
		})
	}

	resp, err := http.Post(tg.server.URL+"/api/v1/parse", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", resp.StatusCode)
	}

	resp, _ = tg.get(t, "/api/v1/parse")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /parse status = %d, want 405", resp.StatusCode)
	}
}

func TestBatchEndpoint(t *testing.T) {
	tg := newTestGateway(t, false)

	resp, body := tg.post(t, "/api/v1/parse/batch", BatchRequest{Expressions: []string{"A()", "B(", "C(1)"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	results := body["results"].([]interface{})
	if len(results) != 3 || body["failed"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
	second := results[1].(map[string]interface{})
	if second["ok"] != false || second["error"].(map[string]interface{})["code"] != "MALFORMED_EXPRESSION" {
		t.Errorf("results[1] = %v", second)
	}
}

func TestTokenizeEndpoint(t *testing.T) {
	tg := newTestGateway(t, false)

	resp, body := tg.post(t, "/api/v1/tokenize", ParseRequest{Expression: `A("x")`})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	tokens := body["tokens"].([]interface{})
	if len(tokens) != 6 {
		t.Fatalf("got %d tokens, want 6", len(tokens))
	}
	quote := tokens[2].(map[string]interface{})
	if quote["kind"] != "Quote" || quote["offset"] != float64(2) {
		t.Errorf("tokens[2] = %v", quote)
	}
}

func TestHealthEndpoint(t *testing.T) {
	tg := newTestGateway(t, false)

	resp, body := tg.get(t, "/api/v1/health")
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	tg := newTestGateway(t, true)

	tg.post(t, "/api/v1/parse", ParseRequest{Expression: "Foo()"})
	tg.post(t, "/api/v1/parse", ParseRequest{Expression: "Foo("})

	resp, body := tg.get(t, "/api/v1/history?status=failed")
	if resp.StatusCode != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	entry := body["entries"].([]interface{})[0].(map[string]interface{})
	if entry["expression"] != "Foo(" || entry["source"] != "http" {
		t.Errorf("entry = %v", entry)
	}

	resp, one := tg.get(t, "/api/v1/history/"+entry["id"].(string))
	if resp.StatusCode != http.StatusOK || one["error_code"] != "MALFORMED_EXPRESSION" {
		t.Errorf("status = %d, entry = %v", resp.StatusCode, one)
	}

	resp, stats := tg.get(t, "/api/v1/history/stats")
	if resp.StatusCode != http.StatusOK || stats["total"] != float64(2) {
		t.Errorf("status = %d, stats = %v", resp.StatusCode, stats)
	}

	resp, _ = tg.get(t, "/api/v1/history/00000000-0000-0000-0000-000000000000")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", resp.StatusCode)
	}

	resp, _ = tg.get(t, "/api/v1/history?limit=x")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryDisabled(t *testing.T) {
	tg := newTestGateway(t, false)

	resp, body := tg.get(t, "/api/v1/history")
	if resp.StatusCode != http.StatusNotFound || body["code"] != "history_disabled" {
		t.Errorf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestWebSocket(t *testing.T) {
	tg := newTestGateway(t, false)

	url := "ws" + strings.TrimPrefix(tg.server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	exchange := func(msg interface{}) map[string]interface{} {
		t.Helper()
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		var resp map[string]interface{}
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return resp
	}

	pong := exchange(map[string]interface{}{"type": "ping", "id": "1"})
	if pong["type"] != "pong" || pong["id"] != "1" {
		t.Errorf("ping response = %v", pong)
	}

	result := exchange(map[string]interface{}{"type": "parse", "id": "2", "payload": map[string]string{"expression": "Foo(Bar(1))"}})
	if result["type"] != "result" || result["id"] != "2" {
		t.Fatalf("parse response = %v", result)
	}
	if result["payload"].(map[string]interface{})["canonical"] != "Foo(Bar(1))" {
		t.Errorf("payload = %v", result["payload"])
	}

	failure := exchange(map[string]interface{}{"type": "parse", "id": "3", "payload": map[string]string{"expression": ")"}})
	if failure["type"] != "error" || failure["payload"].(map[string]interface{})["code"] != "MALFORMED_EXPRESSION" {
		t.Errorf("error response = %v", failure)
	}

	tokens := exchange(map[string]interface{}{"type": "tokenize", "id": "4", "payload": map[string]string{"expression": "A(1)"}})
	if tokens["type"] != "tokens" {
		t.Errorf("tokenize response = %v", tokens)
	}

	unknown := exchange(map[string]interface{}{"type": "shout"})
	if unknown["type"] != "error" || unknown["payload"].(map[string]interface{})["code"] != "unknown_type" {
		t.Errorf("unknown response = %v", unknown)
	}
}

func nestedExpression(depth int) string {
	return strings.Repeat("A(", depth) + strings.Repeat(")", depth)
}

func TestParseEndpoint_DeepExpressions(t *testing.T) {
	tg := newTestGatewayWith(t, parser.Options{MaxInputLength: 64 * 1024}, true)

	tests := []struct {
		name       string
		depth      int
		wantStatus int
		wantCode   string
	}{
		{name: "at default limit", depth: parser.DefaultMaxDepth, wantStatus: http.StatusOK},
		{name: "beyond default limit", depth: parser.DefaultMaxDepth + 1, wantStatus: http.StatusUnprocessableEntity, wantCode: "DEPTH_EXCEEDED"},
		{name: "beyond json nesting", depth: 3400, wantStatus: http.StatusUnprocessableEntity, wantCode: "DEPTH_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := tg.post(t, "/api/v1/parse", ParseRequest{Expression: nestedExpression(tt.depth)})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body == nil {
				t.Fatal("empty response body")
			}
			if tt.wantCode != "" {
				if body["code"] != tt.wantCode {
					t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
				}
				return
			}
			if body["depth"] != float64(tt.depth) || body["tree"] == nil {
				t.Errorf("depth = %v, tree present = %v", body["depth"], body["tree"] != nil)
			}
		})
	}

	entries, err := tg.history.List(context.Background(), store.Filter{Status: "ok"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].TreeJSON == "" {
		t.Errorf("recorded tree missing: %d entries", len(entries))
	}
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	deep := ast.NewCommand("A")
	for i := 0; i < ast.MaxEncodableDepth; i++ {
		deep = ast.NewCommand("A", ast.Nest(deep))
	}

	svc, err := service.NewService(service.Config{Logger: logging.Wrap(nil)})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	h := NewHandler(svc, nil, nil, logging.Wrap(nil))

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, &ParseResponse{Tree: deep})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q is not JSON: %v", rec.Body.String(), err)
	}
	if body.Code != "INTERNAL" {
		t.Errorf("code = %q, want INTERNAL", body.Code)
	}
}
