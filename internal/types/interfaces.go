package types

import (
	"context"
)

// EntityStore is the injected capability over the host's document store.
// The core never assumes a schema beyond opaque payload plus reference.
type EntityStore interface {
	Create(ctx context.Context, kind string, data Entity) (*Entity, error)
	Update(ctx context.Context, id string, patch EntityPatch) (*Entity, error)
	Get(ctx context.Context, id string) (*Entity, error)
	List(ctx context.Context, kind string) ([]Entity, error)
}

// SettingsStore is the host's key-value configuration surface. Values are
// opaque strings; callers do their own (de)serialization.
type SettingsStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// LibraryResolver searches the configured content libraries.
type LibraryResolver interface {
	// FindByName resolves a library entry by exact case-insensitive name
	// match across the libraries configured for the given category.
	// Returns nil when nothing matches.
	FindByName(ctx context.Context, category, name string) (*LibraryEntry, error)
	// Search returns entries whose names contain the query, for read-only
	// info tools.
	Search(ctx context.Context, category, query string, limit int) ([]LibraryEntry, error)
}

// PartyProvider supplies a short textual summary of the configured party.
type PartyProvider interface {
	Summary(ctx context.Context) (string, error)
}

// LLMClient defines the interface for the remote chat-completion API.
type LLMClient interface {
	// Complete sends messages without a tool schema and returns raw text.
	Complete(ctx context.Context, req CompletionRequest) (*LLMToolResponse, error)
	// CompleteWithTools advertises the tool catalog and returns text plus
	// any structured tool invocations.
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDefinition) (*LLMToolResponse, error)
}

// CompletionRequest carries the prompt and sampling options for one call.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// ChatMessage is one message in the remote API's wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a tool that the LLM can invoke.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID    string                 `json:"id"`    // Unique ID for this tool use
	Name  string                 `json:"name"`  // Tool name to invoke
	Input map[string]interface{} `json:"input"` // Tool arguments
}

// UsageMetadata captures token usage metrics from the LLM.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMToolResponse contains both text response and tool calls from the LLM.
type LLMToolResponse struct {
	Text       string        `json:"text"`        // Text response (may be empty if only tool calls)
	ToolCalls  []ToolCall    `json:"tool_calls"`  // Tool invocations requested by LLM
	StopReason string        `json:"stop_reason"` // "stop", "tool_calls", etc.
	Usage      UsageMetadata `json:"usage"`
}
