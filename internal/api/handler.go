// Package api provides HTTP handlers for the LIFEOS API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/lifeos/server/internal/events"
	"github.com/lifeos/server/internal/relay"
	"github.com/lifeos/server/internal/store"
)

// Handler provides the chat and dashboard read endpoints.
type Handler struct {
	repo   store.Repository
	client *relay.Client
	relay  *relay.Relay
	hub    *events.Hub
}

// NewHandler creates a new Handler with its collaborators.
func NewHandler(repo store.Repository, client *relay.Client, hub *events.Hub) *Handler {
	return &Handler{
		repo:   repo,
		client: client,
		relay:  relay.New(repo, hub),
		hub:    hub,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
