// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/lifeos/server/internal/domain"
)

// Repository defines the interface for persisting conversations and the
// records produced by tool execution. Every insert is its own unit of work;
// no transaction spans tool effects and message persistence.
type Repository interface {
	// CreateConversation creates a new conversation in the given domain.
	CreateConversation(ctx context.Context, dom string) (*domain.Conversation, error)

	// GetConversation retrieves a conversation by ID. Returns nil if not found.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversations retrieves the most recent conversations, newest
	// first, each with its first message as preview.
	ListConversations(ctx context.Context, limit int) ([]*domain.Conversation, error)

	// AppendMessage appends one message to a conversation.
	AppendMessage(ctx context.Context, conversationID, role, content string) (*domain.Message, error)

	// ListMessages retrieves all messages of a conversation ordered by
	// creation time.
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)

	// InsertStudyLog records a study session.
	InsertStudyLog(ctx context.Context, log *domain.StudyLog) error

	// InsertGoal records a goal.
	InsertGoal(ctx context.Context, goal *domain.Goal) error

	// InsertInsight records an insight.
	InsertInsight(ctx context.Context, insight *domain.Insight) error

	// ListStudyLogs retrieves the most recent study logs, newest first.
	ListStudyLogs(ctx context.Context, limit int) ([]*domain.StudyLog, error)

	// ListGoals retrieves goals, optionally filtered by domain, newest first.
	ListGoals(ctx context.Context, dom string) ([]*domain.Goal, error)

	// ListInsights retrieves the most recent insights, optionally filtered
	// by domain, newest first.
	ListInsights(ctx context.Context, dom string, limit int) ([]*domain.Insight, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
