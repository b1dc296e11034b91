// Package domain contains core domain types for the LIFEOS server.
package domain

import (
	"time"
)

// Life domains selectable by the dashboard. Unknown values fall back to
// DomainGeneral when resolving prompts.
const (
	DomainLearn   = "learn"
	DomainFinance = "finance"
	DomainHealth  = "health"
	DomainGeneral = "general"
)

// Message roles stored in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation groups the messages of one chat thread within a life domain.
// Conversations are created lazily on the first message of a thread and are
// never mutated afterwards except by appended messages.
type Conversation struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`

	// Preview carries the first message content when listing conversations.
	// Populated by queries only, never stored.
	Preview string `json:"preview,omitempty"`
}

// Message is one turn in a conversation. Messages are append-only; replay
// order is creation time.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
