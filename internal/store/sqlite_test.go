package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lifeos/server/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "lifeos.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCreateAndGetConversation(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	conv, err := repo.CreateConversation(ctx, domain.DomainLearn)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("expected conversation ID to be generated")
	}

	got, err := repo.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected conversation, got nil")
	}
	if got.Domain != domain.DomainLearn {
		t.Errorf("expected domain %q, got %q", domain.DomainLearn, got.Domain)
	}
}

func TestGetConversationMissing(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)

	got, err := repo.GetConversation(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing conversation, got %+v", got)
	}
}

func TestAppendAndListMessagesPreservesOrder(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	conv, err := repo.CreateConversation(ctx, domain.DomainGeneral)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if _, err := repo.AppendMessage(ctx, conv.ID, domain.RoleUser, c); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	msgs, err := repo.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(msgs))
	}
	for i, msg := range msgs {
		if msg.Content != contents[i] {
			t.Errorf("message %d: expected %q, got %q", i, contents[i], msg.Content)
		}
	}
}

func TestListConversationsReturnsPreview(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	conv, err := repo.CreateConversation(ctx, domain.DomainFinance)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if _, err := repo.AppendMessage(ctx, conv.ID, domain.RoleUser, "how do I budget?"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := repo.AppendMessage(ctx, conv.ID, domain.RoleAssistant, "start by tracking spending"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	convs, err := repo.ListConversations(ctx, 10)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	if convs[0].Preview != "how do I budget?" {
		t.Errorf("expected first message as preview, got %q", convs[0].Preview)
	}
}

func TestInsertAndListRecords(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.InsertStudyLog(ctx, &domain.StudyLog{Subject: "calculus", DurationMinutes: 120}); err != nil {
		t.Fatalf("InsertStudyLog failed: %v", err)
	}
	if err := repo.InsertGoal(ctx, &domain.Goal{
		Domain: domain.DomainLearn, Title: "read 12 books", TargetValue: 12, Unit: "books",
	}); err != nil {
		t.Fatalf("InsertGoal failed: %v", err)
	}
	if err := repo.InsertInsight(ctx, &domain.Insight{
		Domain: domain.DomainLearn, Title: "study streak", Content: "5 days in a row", Priority: "medium",
	}); err != nil {
		t.Fatalf("InsertInsight failed: %v", err)
	}

	logs, err := repo.ListStudyLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListStudyLogs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Subject != "calculus" {
		t.Fatalf("unexpected study logs: %+v", logs)
	}

	goals, err := repo.ListGoals(ctx, domain.DomainLearn)
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}
	if len(goals) != 1 || goals[0].Unit != "books" {
		t.Fatalf("unexpected goals: %+v", goals)
	}

	// Domain filter excludes other domains.
	other, err := repo.ListGoals(ctx, domain.DomainHealth)
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no health goals, got %d", len(other))
	}

	insights, err := repo.ListInsights(ctx, "", 5)
	if err != nil {
		t.Fatalf("ListInsights failed: %v", err)
	}
	if len(insights) != 1 || insights[0].Priority != "medium" {
		t.Fatalf("unexpected insights: %+v", insights)
	}
}
