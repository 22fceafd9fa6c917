package openaistyle

import (
	"bytes"
	"encoding/json"

	"github.com/xlr8harder/llmclient/llm"
)

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model     string           `json:"model"`
	Messages  []llm.Message    `json:"messages"`
	MaxTokens int              `json:"max_tokens"`
	Stream    bool             `json:"stream,omitempty"`
	Reasoning *llm.Reasoning   `json:"reasoning,omitempty"`
	Provider  *providerRouting `json:"provider,omitempty"`
}

// providerRouting carries OpenRouter's routing preferences.
type providerRouting struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
	Ignore         []string `json:"ignore,omitempty"`
}

// apiError is the error object providers embed in bodies and events.
type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// chatMessage is the assistant message inside a choice.
type chatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

// chatDelta is the incremental form streamed inside a choice.
type chatDelta struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	Delta        *chatDelta  `json:"delta"`
	FinishReason string      `json:"finish_reason"`
	Error        *apiError   `json:"error"`
}

// chatResponse covers both the buffered reply and individual stream
// events; providers leave unused fields absent. The top-level
// Provider field is OpenRouter's report of which sub-provider served
// the request.
type chatResponse struct {
	ID       string          `json:"id"`
	Created  int64           `json:"created"`
	Model    string          `json:"model"`
	Provider string          `json:"provider"`
	Choices  []choice        `json:"choices"`
	Usage    *llm.Usage      `json:"usage"`
	Error    json.RawMessage `json:"error"`
}

// hasError reports whether a top-level error payload is present.
func (r *chatResponse) hasError() bool {
	return len(r.Error) > 0 && !bytes.Equal(r.Error, []byte("null"))
}

// errorMessage extracts the message from a top-level error payload,
// accepting both the object and bare-string forms.
func (r *chatResponse) errorMessage() string {
	if !r.hasError() {
		return ""
	}
	var obj apiError
	if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil && s != "" {
		return s
	}
	return string(r.Error)
}
