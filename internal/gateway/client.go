// Package gateway performs the remote chat-completion call. It speaks the
// OpenAI-compatible chat/completions wire format with a bearer credential and
// supports two mutually exclusive operating modes: native tool calling, and a
// text-only mode for the delimited-JSON fallback protocol. Failures are
// terminal for the current request; no retry or backoff.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// Config holds gateway settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements types.LLMClient against an OpenAI-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a gateway client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// wireRequest is the chat/completions request body.
type wireRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Tools       []wireTool          `json:"tools,omitempty"`
	ToolChoice  string              `json:"tool_choice,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// wireResponse is the chat/completions response body.
type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends messages without a tool schema and returns raw text.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (*types.LLMToolResponse, error) {
	return c.call(ctx, req, nil)
}

// CompleteWithTools advertises the tool catalog so the model may return
// structured invocations alongside optional text.
func (c *Client) CompleteWithTools(ctx context.Context, req types.CompletionRequest, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	return c.call(ctx, req, tools)
}

func (c *Client) call(ctx context.Context, req types.CompletionRequest, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, &types.AuthenticationError{}
	}

	start := time.Now()
	body := wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if len(tools) > 0 {
		body.Tools = mapToolDefinitions(tools)
		body.ToolChoice = "auto"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.UpstreamError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("completion request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("model", req.Model))
		return nil, &types.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, &types.UpstreamError{Message: fmt.Sprintf("malformed response payload: %v", err)}
	}
	if wire.Error != nil {
		return nil, &types.UpstreamError{Message: wire.Error.Message}
	}
	if len(wire.Choices) == 0 {
		return nil, &types.UpstreamError{Message: "no completion returned"}
	}

	choice := wire.Choices[0]
	calls, err := mapWireToolCalls(choice.Message.ToolCalls)
	if err != nil {
		return nil, &types.UpstreamError{Message: err.Error()}
	}

	result := &types.LLMToolResponse{
		Text:       choice.Message.Content,
		ToolCalls:  calls,
		StopReason: choice.FinishReason,
		Usage: types.UsageMetadata{
			InputTokens:  wire.Usage.PromptTokens,
			OutputTokens: wire.Usage.CompletionTokens,
			TotalTokens:  wire.Usage.TotalTokens,
		},
	}

	c.logger.Debug("completion finished",
		zap.String("model", req.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("tool_calls", len(result.ToolCalls)),
		zap.Int("total_tokens", result.Usage.TotalTokens))
	return result, nil
}

// mapToolDefinitions converts generic tool definitions to the wire format.
func mapToolDefinitions(tools []types.ToolDefinition) []wireTool {
	result := make([]wireTool, len(tools))
	for i, t := range tools {
		result[i] = wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return result
}

// mapWireToolCalls converts wire tool calls to generic tool calls.
func mapWireToolCalls(calls []wireToolCall) ([]types.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	result := make([]types.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c.Type != "" && c.Type != "function" {
			continue
		}
		var args map[string]interface{}
		if c.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to unmarshal arguments for tool %s: %w", c.Function.Name, err)
			}
		}
		result = append(result, types.ToolCall{
			ID:    c.ID,
			Name:  c.Function.Name,
			Input: args,
		})
	}
	return result, nil
}
