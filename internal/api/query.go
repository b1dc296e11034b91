package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lifeos/server/internal/domain"
)

// Dashboard list limits, matching what the frontend renders.
const (
	conversationListLimit = 10
	insightListLimit      = 5
	studyLogListLimit     = 50
)

// HandleListConversations handles GET /api/conversations.
func (h *Handler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.repo.ListConversations(r.Context(), conversationListLimit)
	if err != nil {
		slog.Error("Failed to list conversations", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	JSON(w, http.StatusOK, convs)
}

// HandleListMessages handles GET /api/conversations/{id}/messages, returning
// the conversation history in creation order.
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := h.repo.GetConversation(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load conversation", "error", err, "conversation_id", id)
		Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	msgs, err := h.repo.ListMessages(r.Context(), id)
	if err != nil {
		slog.Error("Failed to list messages", "error", err, "conversation_id", id)
		Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	JSON(w, http.StatusOK, msgs)
}

// HandleListInsights handles GET /api/insights?domain=learn.
func (h *Handler) HandleListInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.repo.ListInsights(r.Context(), r.URL.Query().Get("domain"), insightListLimit)
	if err != nil {
		slog.Error("Failed to list insights", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list insights")
		return
	}
	if insights == nil {
		insights = []*domain.Insight{}
	}
	JSON(w, http.StatusOK, insights)
}

// HandleListGoals handles GET /api/goals?domain=learn.
func (h *Handler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.repo.ListGoals(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		slog.Error("Failed to list goals", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	if goals == nil {
		goals = []*domain.Goal{}
	}
	JSON(w, http.StatusOK, goals)
}

// HandleListStudyLogs handles GET /api/study-logs.
func (h *Handler) HandleListStudyLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.repo.ListStudyLogs(r.Context(), studyLogListLimit)
	if err != nil {
		slog.Error("Failed to list study logs", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list study logs")
		return
	}
	if logs == nil {
		logs = []*domain.StudyLog{}
	}
	JSON(w, http.StatusOK, logs)
}
