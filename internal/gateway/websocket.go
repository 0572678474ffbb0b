package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/logging"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket upgrader with permissive settings for local development
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`         // "parse", "tokenize", "ping"
	ID      string          `json:"id,omitempty"` // echoed in the response
	Payload json.RawMessage `json:"payload"`      // Message-specific payload
}

// WSResponse represents a WebSocket response
type WSResponse struct {
	Type    string      `json:"type"`         // "result", "tokens", "error", "pong"
	ID      string      `json:"id,omitempty"` // ID of the request
	Payload interface{} `json:"payload"`      // Response-specific payload
}

// WebSocketHandler handles WebSocket connections for interactive parsing
type WebSocketHandler struct {
	service *service.Service
	logger  *logging.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(svc *service.Service, logger *logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.New("callexpr-websocket")
	}
	return &WebSocketHandler{
		service: svc,
		logger:  logger,
	}
}

// ServeHTTP handles WebSocket upgrade and connections
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}
	conn.SetReadLimit(int64(h.service.Parser().Options().MaxInputLength)*2 + 4096)
	h.handleConnection(r.Context(), conn)
}

// handleConnection handles a single WebSocket connection. Messages are
// answered in the order they arrive.
func (h *WebSocketHandler) handleConnection(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	h.logger.Info("WebSocket connection established", "remote", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(service.WithSource(ctx, store.SourceWS))
	defer cancel()

	// Set read deadline for ping/pong
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Read messages in a loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", "error", err.Error())
			} else {
				h.logger.Info("WebSocket connection closed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "ping":
			h.sendResponse(conn, WSResponse{Type: "pong", ID: msg.ID})

		case "parse":
			var req ParseRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				h.sendError(conn, msg.ID, "invalid_payload", "Invalid parse payload", nil)
				continue
			}
			resp, err := parseResponse(ctx, h.service, req)
			if err != nil {
				h.sendError(conn, msg.ID, "", "", err)
				continue
			}
			h.sendResponse(conn, WSResponse{Type: "result", ID: msg.ID, Payload: resp})

		case "tokenize":
			var req ParseRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				h.sendError(conn, msg.ID, "invalid_payload", "Invalid tokenize payload", nil)
				continue
			}
			tokens, err := h.service.Tokenize(ctx, req.Expression)
			if err != nil {
				h.sendError(conn, msg.ID, "", "", err)
				continue
			}
			h.sendResponse(conn, WSResponse{Type: "tokens", ID: msg.ID, Payload: TokensResponse{Tokens: render.TokenList(tokens)}})

		default:
			h.sendError(conn, msg.ID, "unknown_type", "Unknown message type: "+msg.Type, nil)
		}
	}
}

// sendResponse sends a response message via WebSocket. A response that
// cannot be encoded is replaced by an INTERNAL error for the same ID.
func (h *WebSocketHandler) sendResponse(conn *websocket.Conn, resp WSResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.LogError(mdwerror.Wrap(err, "failed to encode WebSocket response").
			WithCode(mdwerror.CodeInternal).
			WithOperation("gateway.sendResponse"))
		data, _ = json.Marshal(WSResponse{Type: "error", ID: resp.ID, Payload: &ErrorResponse{
			Error: "failed to encode response",
			Code:  mdwerror.CodeInternal.String(),
		}})
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn("WebSocket send error", "error", err.Error())
	}
}

// sendError sends an error response. A service error takes precedence over
// code and message.
func (h *WebSocketHandler) sendError(conn *websocket.Conn, id, code, message string, err error) {
	payload := &ErrorResponse{Error: message, Code: code}
	if err != nil {
		payload = errorResponse(err)
		if mdwerror.GetCode(err) == mdwerror.CodeInternal {
			h.logger.Error("WebSocket request failed", "error", err.Error())
		}
	}
	h.sendResponse(conn, WSResponse{Type: "error", ID: id, Payload: payload})
}
