package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lifeos/server/internal/domain"
	"github.com/lifeos/server/internal/events"
	"github.com/lifeos/server/internal/relay"
	"github.com/lifeos/server/internal/store"
)

// learnStream is a vendor-shaped SSE stream: two content deltas plus a
// log_study_time call whose arguments span two fragments.
const learnStream = `data: {"choices":[{"delta":{"content":"Nice, "}}]}

data: {"choices":[{"delta":{"content":"logged it."}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"log_study_time","arguments":"{\"subject\":"}}]}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"calculus\",\"duration_minutes\":120}"}}]}}]}

data: [DONE]
`

type testEnv struct {
	repo   store.Repository
	server *httptest.Server
}

func newTestEnv(t *testing.T, upstream http.HandlerFunc) *testEnv {
	t.Helper()

	gateway := httptest.NewServer(upstream)
	t.Cleanup(gateway.Close)

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "lifeos.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	hub := events.NewHub()
	t.Cleanup(hub.Close)

	client := relay.NewClient(gateway.URL, "test-key", "google/gemini-2.5-flash")
	handler := NewHandler(repo, client, hub)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testEnv{repo: repo, server: server}
}

func sseUpstream(stream string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, stream)
	}
}

func postChat(t *testing.T, env *testEnv, body ChatRequest) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(env.server.URL+"/api/chat", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST /api/chat failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandleChatEndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, sseUpstream(learnStream))
	resp := postChat(t, env, ChatRequest{
		Messages: []relay.ChatMessage{{Role: "user", Content: "I studied calculus for 2 hours"}},
		Domain:   domain.DomainLearn,
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	body := string(raw)

	// Content deltas pass through in vendor format.
	if !strings.Contains(body, `data: {"choices":[{"delta":{"content":"Nice, "}}]}`) {
		t.Errorf("content delta not passed through:\n%s", body)
	}

	// The relay-emitted conversation event precedes the sentinel.
	convIdx := strings.Index(body, `"conversationId"`)
	doneIdx := strings.Index(body, "data: [DONE]")
	if convIdx < 0 || doneIdx < 0 || convIdx > doneIdx {
		t.Errorf("expected conversationId event before [DONE]:\n%s", body)
	}

	ctx := context.Background()

	// Exactly one conversation was created lazily.
	convs, err := env.repo.ListConversations(ctx, 10)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	if convs[0].Domain != domain.DomainLearn {
		t.Errorf("expected learn conversation, got %q", convs[0].Domain)
	}

	// The returned identifier matches the stored conversation.
	if !strings.Contains(body, convs[0].ID) {
		t.Errorf("emitted conversationId does not match stored conversation %q", convs[0].ID)
	}

	// User turn plus exactly one assistant message.
	msgs, err := env.repo.ListMessages(ctx, convs[0].ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Errorf("unexpected roles: %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "Nice, logged it." {
		t.Errorf("unexpected assistant content %q", msgs[1].Content)
	}

	// Exactly one study log insert for the completed tool call.
	logs, err := env.repo.ListStudyLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListStudyLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 study log, got %d", len(logs))
	}
	if logs[0].Subject != "calculus" || logs[0].DurationMinutes != 120 {
		t.Errorf("unexpected study log: %+v", logs[0])
	}
}

func TestHandleChatContinuesExistingConversation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, sseUpstream(learnStream))

	conv, err := env.repo.CreateConversation(context.Background(), domain.DomainLearn)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	resp := postChat(t, env, ChatRequest{
		Messages:       []relay.ChatMessage{{Role: "user", Content: "more studying"}},
		Domain:         domain.DomainLearn,
		ConversationID: conv.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), conv.ID) {
		t.Error("expected existing conversation id in final event")
	}

	convs, err := env.repo.ListConversations(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("expected no new conversation, got %d", len(convs))
	}
}

func TestHandleChatUnknownConversation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, sseUpstream(learnStream))
	resp := postChat(t, env, ChatRequest{
		Messages:       []relay.ChatMessage{{Role: "user", Content: "hi"}},
		ConversationID: "missing-id",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestHandleChatValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, sseUpstream(learnStream))

	resp := postChat(t, env, ChatRequest{Domain: domain.DomainLearn})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty messages: expected 400, got %d", resp.StatusCode)
	}

	raw, err := http.Post(env.server.URL+"/api/chat", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer func() { _ = raw.Body.Close() }()
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", raw.StatusCode)
	}
}

func TestHandleChatTranslatesRateAndBillingErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		upstream    int
		wantStatus  int
		wantMessage string
	}{
		{"rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests, rateLimitMessage},
		{"payment required", http.StatusPaymentRequired, http.StatusPaymentRequired, paymentMessage},
		{"gateway failure", http.StatusBadGateway, http.StatusInternalServerError, "AI gateway error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.upstream)
			})

			resp := postChat(t, env, ChatRequest{
				Messages: []relay.ChatMessage{{Role: "user", Content: "hi"}},
				Domain:   domain.DomainGeneral,
			})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, body["error"])
			}
		})
	}
}

func TestHandleChatMissingCredential(t *testing.T) {
	t.Parallel()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "lifeos.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	hub := events.NewHub()
	t.Cleanup(hub.Close)

	handler := NewHandler(repo, relay.NewClient("http://127.0.0.1:0", "", "m"), hub)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	resp := postChat(t, &testEnv{repo: repo, server: server}, ChatRequest{
		Messages: []relay.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
}
