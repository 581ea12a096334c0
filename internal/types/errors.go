package types

import "fmt"

// AuthenticationError means the API credential is missing or blank.
// Checked before any network call is made.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "authentication failed: API key not configured"
	}
	return "authentication failed: " + e.Reason
}

// UpstreamError is a non-2xx HTTP response or malformed payload from the
// remote completion API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream API error (status %d): %s", e.StatusCode, e.Message)
	}
	return "upstream API error: " + e.Message
}

// ParseError means a fallback-mode marker block was present but its JSON was
// malformed. Non-fatal: the interpreter degrades to plain text.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "response parse error: " + e.Message
}

// NotFoundError means a target entity reference did not resolve.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return "entity not found: " + e.Ref
}

// ExecutionError means the entity store rejected a mutation.
type ExecutionError struct {
	Op      string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (%s): %s", e.Op, e.Message)
}
