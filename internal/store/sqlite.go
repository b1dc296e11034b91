package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lifeos/server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

	CREATE TABLE IF NOT EXISTS study_logs (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		duration_minutes REAL NOT NULL,
		notes TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		title TEXT NOT NULL,
		target_value REAL NOT NULL,
		unit TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS insights (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		priority TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_domain ON insights(domain, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConversation creates a new conversation in the given domain.
func (s *SQLiteStore) CreateConversation(ctx context.Context, dom string) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		Domain:    dom,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO conversations (id, domain, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, conv.ID, conv.Domain, conv.CreatedAt.Unix()); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT id, domain, created_at FROM conversations WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	var conv domain.Conversation
	var createdAt int64

	err := row.Scan(&conv.ID, &conv.Domain, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.CreatedAt = time.Unix(createdAt, 0)
	return &conv, nil
}

// ListConversations retrieves the most recent conversations with previews.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]*domain.Conversation, error) {
	query := `
		SELECT c.id, c.domain, c.created_at,
		       COALESCE((SELECT content FROM messages m
		                 WHERE m.conversation_id = c.id
		                 ORDER BY m.created_at ASC LIMIT 1), '') AS preview
		FROM conversations c
		ORDER BY c.created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer closeRows(rows, "conversations")

	var convs []*domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var createdAt int64
		if err := rows.Scan(&conv.ID, &conv.Domain, &createdAt, &conv.Preview); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		conv.CreatedAt = time.Unix(createdAt, 0)
		convs = append(convs, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// AppendMessage appends one message to a conversation.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID, role, content string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	query := `INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListMessages retrieves all messages of a conversation in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer closeRows(rows, "messages")

	var msgs []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.CreatedAt = time.Unix(0, createdAt)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// InsertStudyLog records a study session.
func (s *SQLiteStore) InsertStudyLog(ctx context.Context, log *domain.StudyLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var notes interface{}
	if log.Notes != "" {
		notes = log.Notes
	}

	query := `INSERT INTO study_logs (id, subject, duration_minutes, notes, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, log.ID, log.Subject, log.DurationMinutes, notes, log.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert study log: %w", err)
	}
	return nil
}

// InsertGoal records a goal.
func (s *SQLiteStore) InsertGoal(ctx context.Context, goal *domain.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO goals (id, domain, title, target_value, unit, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		goal.ID, goal.Domain, goal.Title, goal.TargetValue, goal.Unit, goal.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// InsertInsight records an insight.
func (s *SQLiteStore) InsertInsight(ctx context.Context, insight *domain.Insight) error {
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO insights (id, domain, title, content, priority, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		insight.ID, insight.Domain, insight.Title, insight.Content, insight.Priority, insight.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// ListStudyLogs retrieves the most recent study logs.
func (s *SQLiteStore) ListStudyLogs(ctx context.Context, limit int) ([]*domain.StudyLog, error) {
	query := `
		SELECT id, subject, duration_minutes, notes, created_at
		FROM study_logs ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query study logs: %w", err)
	}
	defer closeRows(rows, "study_logs")

	var logs []*domain.StudyLog
	for rows.Next() {
		var log domain.StudyLog
		var notes sql.NullString
		var createdAt int64
		if err := rows.Scan(&log.ID, &log.Subject, &log.DurationMinutes, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan study log row: %w", err)
		}
		log.Notes = notes.String
		log.CreatedAt = time.Unix(createdAt, 0)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study logs: %w", err)
	}
	return logs, nil
}

// ListGoals retrieves goals, optionally filtered by domain.
func (s *SQLiteStore) ListGoals(ctx context.Context, dom string) ([]*domain.Goal, error) {
	query := `SELECT id, domain, title, target_value, unit, created_at FROM goals`
	args := []interface{}{}
	if dom != "" {
		query += ` WHERE domain = ?`
		args = append(args, dom)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer closeRows(rows, "goals")

	var goals []*domain.Goal
	for rows.Next() {
		var goal domain.Goal
		var createdAt int64
		if err := rows.Scan(&goal.ID, &goal.Domain, &goal.Title, &goal.TargetValue, &goal.Unit, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal row: %w", err)
		}
		goal.CreatedAt = time.Unix(createdAt, 0)
		goals = append(goals, &goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// ListInsights retrieves the most recent insights, optionally filtered by domain.
func (s *SQLiteStore) ListInsights(ctx context.Context, dom string, limit int) ([]*domain.Insight, error) {
	query := `SELECT id, domain, title, content, priority, created_at FROM insights`
	args := []interface{}{}
	if dom != "" {
		query += ` WHERE domain = ?`
		args = append(args, dom)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer closeRows(rows, "insights")

	var insights []*domain.Insight
	for rows.Next() {
		var insight domain.Insight
		var createdAt int64
		if err := rows.Scan(&insight.ID, &insight.Domain, &insight.Title, &insight.Content, &insight.Priority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan insight row: %w", err)
		}
		insight.CreatedAt = time.Unix(createdAt, 0)
		insights = append(insights, &insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return insights, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows, table string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "table", table, "error", err)
	}
}
