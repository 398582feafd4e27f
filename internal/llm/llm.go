// Package llm defines the inference-service contract the stage runner depends
// on, plus the OpenAI-compatible client that implements it. The orchestration
// core only ever sees Request/Response: one conversation plus the active
// stage's tool signatures in, either tool calls or terminal text out.
package llm

import (
	"context"

	"github.com/lucasnoah/patchfactory/internal/tools"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a capability invocation requested by the model. Arguments is
// nil when the model emitted unparseable argument JSON; dispatch then fails
// with a structured error the model sees on the next turn.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Raw       string         `json:"raw,omitempty"`
}

// Message is one conversation entry sent to or received from the service.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// Request is one inference call: the conversation so far plus the tools the
// active stage exposes.
type Request struct {
	Messages []Message
	Tools    []tools.Spec
}

// Response is the service's reply: either one or more tool calls, or terminal
// content (possibly both — content accompanying tool calls is commentary).
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Service is the inference-service collaborator. Implementations are
// synchronous; one call, one response.
type Service interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
