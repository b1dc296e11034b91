package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// keepaliveInterval matches the SSE keepalive cadence so proxies do not
// drop idle event connections.
const keepaliveInterval = 30 * time.Second

// WebSocketHandler streams change events to dashboard clients over
// WebSocket.
type WebSocketHandler struct {
	hub           *Hub
	allowedOrigin string
	isDev         bool
	keepalive     time.Duration
}

// NewWebSocketHandler creates a handler bound to the hub.
func NewWebSocketHandler(hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		keepalive:     keepaliveInterval,
	}
}

// ServeHTTP upgrades the connection and forwards hub events until the
// client disconnects or the hub closes.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	// CloseRead runs the reader loop needed to process pongs for Ping and
	// cancels the context when the client disconnects.
	ctx := ws.CloseRead(r.Context())
	slog.Info("Event stream connected", "ip", r.RemoteAddr)

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Event stream disconnected", "ip", r.RemoteAddr)
			return
		case <-keepalive.C:
			if err := ws.Ping(ctx); err != nil {
				slog.Debug("Event stream ping failed", "error", err)
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Warn("failed to marshal change event", "error", err)
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				slog.Debug("Event stream write failed", "error", err)
				return
			}
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
