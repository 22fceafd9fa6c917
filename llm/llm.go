// Package llm defines the provider-neutral request and response
// contract shared by all adapters: the canonical request shape and its
// validation rules, the standardized response, the error taxonomy that
// drives retry decisions, and a generic server-sent events reader.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
	System    Role = "system"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage returns a message authored by the user.
func NewUserMessage(text string) Message {
	return Message{Role: User, Content: text}
}

// NewAssistantMessage returns a message authored by the model.
func NewAssistantMessage(text string) Message {
	return Message{Role: Assistant, Content: text}
}

// NewSystemMessage returns a system instruction message.
func NewSystemMessage(text string) Message {
	return Message{Role: System, Content: text}
}

// Transport selects how a response is carried over the wire.
type Transport string

const (
	// TransportDefault buffers the complete response body. The empty
	// string is equivalent.
	TransportDefault Transport = "default"

	// TransportStream reads the response as server-sent events and
	// aggregates the deltas into a single response before returning.
	TransportStream Transport = "stream"
)

// Timeout bounds a single request attempt. Connect covers connection
// establishment and Read covers waiting on the response; a zero
// Connect leaves connection setup under the Read budget.
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
}

// NewTimeout returns the scalar timeout form, a read budget only.
func NewTimeout(read time.Duration) *Timeout {
	return &Timeout{Read: read}
}

// NewConnectReadTimeout returns the pair timeout form.
func NewConnectReadTimeout(connect, read time.Duration) *Timeout {
	return &Timeout{Connect: connect, Read: read}
}

// Total returns the overall deadline for one attempt.
func (t *Timeout) Total() time.Duration {
	return t.Connect + t.Read
}

// Reasoning effort levels accepted by Reasoning.Effort.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// Reasoning controls whether the model should produce thinking output
// ahead of its answer. MaxTokens and Effort are mutually exclusive
// ways to size the thinking budget.
type Reasoning struct {
	Enabled   bool   `json:"enabled"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Effort    string `json:"effort,omitempty"`
}

// DefaultMaxRetries applies when a request does not set MaxRetries.
const DefaultMaxRetries = 3

// Request describes one chat completion call in provider-neutral
// form. Build a fresh Request per logical call and do not modify it
// after handing it to a provider.
type Request struct {
	// Messages is the conversation to send. Required.
	Messages []Message

	// Model is the provider-specific model identifier. Required.
	Model string

	// MaxTokens caps the completion length. Zero uses the provider
	// default.
	MaxTokens int

	// Timeout bounds each attempt. Nil uses the provider default.
	Timeout *Timeout

	// MaxRetries is the retry allowance for retryable failures. Nil
	// means DefaultMaxRetries; zero means a single attempt.
	MaxRetries *int

	// AllowList restricts routing to the named sub-providers, in
	// preference order. OpenRouter only. Mutually exclusive with
	// IgnoreList.
	AllowList []string

	// IgnoreList excludes the named sub-providers from routing.
	// OpenRouter only.
	IgnoreList []string

	// Transport selects buffered or aggregated-streaming delivery.
	Transport Transport

	// Reasoning configures thinking output for models that support it.
	Reasoning *Reasoning

	// Stream is the raw wire-level flag. Setting it directly is
	// rejected; use Transport to enable streaming delivery.
	Stream bool
}

// Validate reports the first violated request contract as a permanent
// invalid_option error, or nil. It performs no I/O; providers call it
// before touching the network.
func (r *Request) Validate() *ErrorInfo {
	if len(r.Messages) == 0 {
		return NewError(ErrorKindInvalidOption, "no messages provided")
	}
	if r.Model == "" {
		return NewError(ErrorKindInvalidOption, "no model specified")
	}
	switch r.Transport {
	case "", TransportDefault, TransportStream:
	default:
		return NewError(ErrorKindInvalidOption, fmt.Sprintf("unsupported transport %q", r.Transport))
	}
	if r.Stream && r.Transport != TransportStream {
		return NewError(ErrorKindInvalidOption,
			"Direct stream=true is not supported. Use transport='stream' to enable streaming transport with aggregated output.")
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return NewError(ErrorKindInvalidOption, "max_retries must be >= 0")
	}
	if r.Timeout != nil {
		if r.Timeout.Read <= 0 {
			return NewError(ErrorKindInvalidOption, "timeout read duration must be positive")
		}
		if r.Timeout.Connect < 0 {
			return NewError(ErrorKindInvalidOption, "timeout connect duration must not be negative")
		}
	}
	if len(r.AllowList) > 0 && len(r.IgnoreList) > 0 {
		return NewError(ErrorKindInvalidOption, "allow_list and ignore_list are mutually exclusive")
	}
	if r.Reasoning != nil {
		if r.Reasoning.MaxTokens < 0 {
			return NewError(ErrorKindInvalidOption, "reasoning max_tokens must not be negative")
		}
		if r.Reasoning.MaxTokens > 0 && r.Reasoning.Effort != "" {
			return NewError(ErrorKindInvalidOption, "reasoning max_tokens and effort are mutually exclusive")
		}
		switch r.Reasoning.Effort {
		case "", EffortLow, EffortMedium, EffortHigh:
		default:
			return NewError(ErrorKindInvalidOption, fmt.Sprintf("unsupported reasoning effort %q", r.Reasoning.Effort))
		}
	}
	return nil
}

// RetryBudget returns the effective number of retries for the request.
func (r *Request) RetryBudget() int {
	if r.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *r.MaxRetries
}

// AttemptTimeout returns the deadline for one attempt, falling back to
// the provider default when the request does not carry a timeout.
func (r *Request) AttemptTimeout(fallback time.Duration) time.Duration {
	if r.Timeout != nil {
		return r.Timeout.Total()
	}
	return fallback
}

// Ptr returns a pointer to v, a convenience for optional scalar
// request fields.
func Ptr[T any](v T) *T {
	return &v
}

// Provider adapts one remote LLM HTTP API to the unified contract.
// Implementations are safe for concurrent use.
type Provider interface {
	// Name returns the canonical provider name, e.g. "openrouter".
	Name() string

	// SupportsStreaming reports whether the streaming transport is
	// available for this provider.
	SupportsStreaming() bool

	// ChatCompletion performs a single request attempt. Failures are
	// reported inside the returned Response, never as a Go error, so
	// the result always carries the classifier's verdict.
	ChatCompletion(ctx context.Context, req *Request) *Response
}

// SubProviderLister is implemented by providers that can enumerate
// the upstream services currently able to serve a model.
type SubProviderLister interface {
	Endpoints(ctx context.Context, model string) ([]string, error)
}
