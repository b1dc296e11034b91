package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lifeos/server/internal/domain"
	"github.com/lifeos/server/internal/store"
)

// Sink receives decoded lines destined for the downstream client. Send is
// called once per SSE data line, with the raw line exactly as it should
// appear on the wire.
type Sink interface {
	Send(raw string) error
}

// streamChunk is the vendor-shaped completion delta we care about. Unknown
// fields are ignored on purpose; the raw line is what gets forwarded.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string             `json:"content"`
			ToolCalls []ToolCallFragment `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

// Relay copies one upstream completion stream to a downstream sink while
// accumulating tool calls, then performs the end-of-stream persistence. One
// Relay value is shared across requests; all per-request state lives in Run.
type Relay struct {
	repo  store.Repository
	tools map[string]ToolHandler
	pub   Publisher
}

// New creates a relay over the given store. pub may be nil.
func New(repo store.Repository, pub Publisher) *Relay {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Relay{
		repo:  repo,
		tools: NewToolTable(repo, pub),
		pub:   pub,
	}
}

// Run reads the upstream SSE body until the [DONE] sentinel or EOF,
// forwarding content-delta lines to sink as they arrive. When the stream
// ends it executes accumulated tool calls, persists the assistant message,
// and emits the conversation ID followed by the terminal sentinel.
//
// Tool-execution and argument-parse failures are logged per call and never
// block sibling calls or the rest of finalization. Any upstream read error
// or downstream write error aborts the run.
func (r *Relay) Run(ctx context.Context, upstream io.Reader, sink Sink, conversationID string) error {
	decoder := NewDecoder()
	acc := NewAccumulator()
	var assistant strings.Builder

	buf := make([]byte, 4096)
	for !decoder.Done() {
		n, readErr := upstream.Read(buf)
		if n > 0 {
			for _, event := range decoder.Feed(buf[:n]) {
				if err := r.handleEvent(event, acc, &assistant, sink); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read upstream stream: %w", readErr)
		}
	}

	r.executeToolCalls(ctx, acc.Calls())

	if assistant.Len() > 0 {
		if _, err := r.repo.AppendMessage(ctx, conversationID, domain.RoleAssistant, assistant.String()); err != nil {
			return fmt.Errorf("persist assistant message: %w", err)
		}
		r.pub.Publish(TableMessages, "")
	}

	final, err := json.Marshal(map[string]string{"conversationId": conversationID})
	if err != nil {
		return fmt.Errorf("marshal conversation event: %w", err)
	}
	if err := sink.Send(dataPrefix + string(final)); err != nil {
		return fmt.Errorf("send conversation event: %w", err)
	}
	if err := sink.Send(dataPrefix + doneSentinel); err != nil {
		return fmt.Errorf("send done sentinel: %w", err)
	}
	return nil
}

// handleEvent routes one decoded line: content deltas are buffered and
// forwarded downstream unmodified, tool-call deltas go to the accumulator
// and are not forwarded. Undecodable payloads are logged and skipped so a
// vendor formatting glitch cannot abort the stream.
func (r *Relay) handleEvent(event Event, acc *Accumulator, assistant *strings.Builder, sink Sink) error {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(event.Payload), &chunk); err != nil {
		slog.Warn("skipping undecodable stream line", "error", err, "payload_length", len(event.Payload))
		return nil
	}
	if len(chunk.Choices) == 0 {
		return nil
	}
	delta := chunk.Choices[0].Delta

	if delta.Content != "" {
		assistant.WriteString(delta.Content)
		if err := sink.Send(event.Raw); err != nil {
			return fmt.Errorf("forward content delta: %w", err)
		}
	}
	for _, frag := range delta.ToolCalls {
		acc.Add(frag)
	}
	return nil
}

// executeToolCalls runs each accumulated call sequentially. Failures are
// per-call: a bad argument string or a failed insert is logged and the next
// call still runs.
func (r *Relay) executeToolCalls(ctx context.Context, calls []ToolCall) {
	for _, call := range calls {
		handler, ok := r.tools[call.Name]
		if !ok {
			slog.Warn("skipping unknown tool call", "tool", call.Name, "index", call.Index)
			continue
		}

		args := call.Arguments
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			slog.Warn("skipping tool call with unparseable arguments", "tool", call.Name, "index", call.Index)
			continue
		}

		slog.Info("executing tool call", "tool", call.Name, "index", call.Index)
		if err := handler(ctx, json.RawMessage(args)); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("tool call failed", "tool", call.Name, "index", call.Index, "error", err)
		}
	}
}
