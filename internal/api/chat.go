package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lifeos/server/internal/domain"
	"github.com/lifeos/server/internal/prompt"
	"github.com/lifeos/server/internal/relay"
)

// maxChatBodySize bounds the request body (1MB).
const maxChatBodySize = 1 << 20

// Fixed user-facing bodies for upstream rate/billing conditions. No retry
// is attempted; the caller decides what to do.
const (
	rateLimitMessage = "Rate limits exceeded, please try again later."
	paymentMessage   = "Payment required, please add funds to your workspace."
)

// ChatRequest is the downstream chat payload.
type ChatRequest struct {
	Messages       []relay.ChatMessage `json:"messages"`
	Domain         string              `json:"domain"`
	ConversationID string              `json:"conversationId,omitempty"`
}

// sseSink adapts an http.ResponseWriter to the relay's downstream sink.
// Each line is written as one SSE event and flushed immediately so the
// client sees deltas as they arrive.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(raw string) error {
	if _, err := fmt.Fprintf(s.w, "%s\n\n", raw); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// HandleChat handles POST /api/chat: it persists the user turn, opens the
// upstream completion stream, and relays it to the client as SSE.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		Error(w, http.StatusBadRequest, "messages are required")
		return
	}

	ctx := r.Context()

	// Create the conversation lazily when the caller has none yet.
	conv, err := h.resolveConversation(ctx, req)
	if err != nil {
		slog.Error("Failed to resolve conversation", "error", err, "conversation_id", req.ConversationID)
		Error(w, http.StatusInternalServerError, "failed to resolve conversation")
		return
	}
	if conv == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	// Persist the user turn before contacting the gateway, matching the
	// append-only history contract.
	lastMessage := req.Messages[len(req.Messages)-1]
	if _, err := h.repo.AppendMessage(ctx, conv.ID, domain.RoleUser, lastMessage.Content); err != nil {
		slog.Error("Failed to persist user message", "error", err, "conversation_id", conv.ID)
		Error(w, http.StatusInternalServerError, "failed to persist message")
		return
	}
	h.hub.Publish(relay.TableMessages, conv.Domain)

	systemPrompt, tools := prompt.ForDomain(req.Domain)

	upstream, err := h.client.StreamCompletion(ctx, systemPrompt, req.Messages, tools)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	defer func() {
		if closeErr := upstream.Close(); closeErr != nil {
			slog.Debug("Failed to close upstream body", "error", closeErr)
		}
	}()

	slog.Info("Chat relay started",
		"conversation_id", conv.ID,
		"domain", req.Domain,
		"history_length", len(req.Messages),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	if err := h.relay.Run(ctx, upstream, &sseSink{w: w, flusher: flusher}, conv.ID); err != nil {
		// Headers are gone; all we can do is signal the stream is broken.
		slog.Error("Chat relay failed", "error", err, "conversation_id", conv.ID)
		if _, writeErr := fmt.Fprintf(w, "event: error\ndata: %q\n\n", "stream aborted"); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	slog.Info("Chat relay finished", "conversation_id", conv.ID)
}

// resolveConversation loads the referenced conversation or creates a new
// one when the request carries no identifier. Returns (nil, nil) when the
// identifier is unknown.
func (h *Handler) resolveConversation(ctx context.Context, req ChatRequest) (*domain.Conversation, error) {
	if req.ConversationID != "" {
		return h.repo.GetConversation(ctx, req.ConversationID)
	}

	dom := req.Domain
	if dom == "" {
		dom = domain.DomainGeneral
	}
	conv, err := h.repo.CreateConversation(ctx, dom)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	h.hub.Publish(relay.TableConversations, dom)
	return conv, nil
}

// writeUpstreamError maps gateway errors to downstream responses before any
// streaming has begun.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relay.ErrRateLimited):
		Error(w, http.StatusTooManyRequests, rateLimitMessage)
	case errors.Is(err, relay.ErrPaymentRequired):
		Error(w, http.StatusPaymentRequired, paymentMessage)
	case errors.Is(err, relay.ErrNotConfigured):
		slog.Error("AI gateway credential missing")
		Error(w, http.StatusInternalServerError, "AI gateway is not configured")
	default:
		var upErr *relay.UpstreamError
		if errors.As(err, &upErr) {
			slog.Error("AI gateway error", "status", upErr.Status, "body", upErr.Body)
		} else {
			slog.Error("AI gateway request failed", "error", err)
		}
		Error(w, http.StatusInternalServerError, "AI gateway error")
	}
}

// RegisterRoutes registers chat and dashboard routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Get("/conversations", h.HandleListConversations)
		r.Get("/conversations/{id}/messages", h.HandleListMessages)
		r.Get("/insights", h.HandleListInsights)
		r.Get("/goals", h.HandleListGoals)
		r.Get("/study-logs", h.HandleListStudyLogs)
	})
}
