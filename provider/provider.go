// Package provider implements the unified LLM completion contract: a
// small typed message/response shape that every adapter (OpenAI-style,
// Bedrock-style, or the deterministic template provider) maps to and
// from its own wire format, grounded on original_source's
// inference/base_client.py and inference/unified.py.
package provider

import "context"

// Role identifies a message's speaker in a chat-style completion.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Part is one piece of a message's content: either text or an image
// transported as a base64 data URL or a remote URL.
type Part struct {
	Type      string // "text" | "image_url" | "image_base64"
	Text      string
	URL       string
	Data      string // base64, when Type == "image_base64"
	MediaType string // e.g. "image/png", when Type == "image_base64"
}

// Message is one unified chat message. Content is either plain text
// (Text set, Parts nil) or a list of content parts.
type Message struct {
	Role  Role
	Text  string
	Parts []Part
}

// Request is a unified completion request passed to any provider.
type Request struct {
	Messages    []Message
	Temperature *float32
	MaxTokens   *int
	Stream      bool
	OnToken     func(string)
}

// Completion is a unified completion result.
type Completion struct {
	Text             string
	Model            string
	StopReason       string
	PromptTokens     int
	CompletionTokens int
}

// Provider is the unified contract every adapter implements.
type Provider interface {
	Name() string
	SupportsStreaming() bool
	Complete(ctx context.Context, req Request) (Completion, error)
}

// RetryObserver is implemented by adapters that track the retry count
// of their last Complete call, mirroring the Python adapters'
// getattr(client, "_last_retries", 0) telemetry hook.
type RetryObserver interface {
	LastRetries() int
}
