package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lifeos/server/internal/domain"
	"github.com/lifeos/server/internal/prompt"
	"github.com/lifeos/server/internal/store"
)

// Table names announced on the change-event channel.
const (
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableStudyLogs     = "study_logs"
	TableGoals         = "goals"
	TableInsights      = "insights"
)

// Publisher notifies subscribers that a table changed. Implementations must
// never block the caller.
type Publisher interface {
	Publish(table, dom string)
}

// NopPublisher discards change events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(string, string) {}

// ToolHandler executes one completed tool call against the store.
type ToolHandler func(ctx context.Context, args json.RawMessage) error

// NewToolTable builds the closed mapping from tool name to handler. Adding
// a tool is an entry here plus its schema in the prompt package.
func NewToolTable(repo store.Repository, pub Publisher) map[string]ToolHandler {
	return map[string]ToolHandler{
		prompt.ToolLogStudyTime:    logStudyTime(repo, pub),
		prompt.ToolCreateGoal:      createGoal(repo, pub),
		prompt.ToolGenerateInsight: generateInsight(repo, pub),
	}
}

func logStudyTime(repo store.Repository, pub Publisher) ToolHandler {
	return func(ctx context.Context, args json.RawMessage) error {
		var params struct {
			Subject         string  `json:"subject"`
			DurationMinutes float64 `json:"duration_minutes"`
			Notes           string  `json:"notes"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return fmt.Errorf("parse log_study_time arguments: %w", err)
		}
		err := repo.InsertStudyLog(ctx, &domain.StudyLog{
			Subject:         params.Subject,
			DurationMinutes: params.DurationMinutes,
			Notes:           params.Notes,
		})
		if err != nil {
			return err
		}
		pub.Publish(TableStudyLogs, domain.DomainLearn)
		return nil
	}
}

func createGoal(repo store.Repository, pub Publisher) ToolHandler {
	return func(ctx context.Context, args json.RawMessage) error {
		var params struct {
			Domain      string  `json:"domain"`
			Title       string  `json:"title"`
			TargetValue float64 `json:"target_value"`
			Unit        string  `json:"unit"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return fmt.Errorf("parse create_goal arguments: %w", err)
		}
		err := repo.InsertGoal(ctx, &domain.Goal{
			Domain:      params.Domain,
			Title:       params.Title,
			TargetValue: params.TargetValue,
			Unit:        params.Unit,
		})
		if err != nil {
			return err
		}
		pub.Publish(TableGoals, params.Domain)
		return nil
	}
}

func generateInsight(repo store.Repository, pub Publisher) ToolHandler {
	return func(ctx context.Context, args json.RawMessage) error {
		var params struct {
			Domain   string `json:"domain"`
			Title    string `json:"title"`
			Content  string `json:"content"`
			Priority string `json:"priority"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return fmt.Errorf("parse generate_insight arguments: %w", err)
		}
		err := repo.InsertInsight(ctx, &domain.Insight{
			Domain:   params.Domain,
			Title:    params.Title,
			Content:  params.Content,
			Priority: params.Priority,
		})
		if err != nil {
			return err
		}
		pub.Publish(TableInsights, params.Domain)
		return nil
	}
}
