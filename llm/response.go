package llm

import "encoding/json"

// Usage reports token accounting as returned by the provider.
type Usage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

// CompletionTokensDetails breaks down the completion token count.
type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// StandardizedResponse is the provider-neutral result of a successful
// chat completion. Fields a provider does not report are left at their
// zero values. Not modified after construction.
type StandardizedResponse struct {
	ID           string `json:"id,omitempty"`
	Created      int64  `json:"created,omitempty"`
	Model        string `json:"model,omitempty"`
	Provider     string `json:"provider,omitempty"`
	SubProvider  string `json:"sub_provider,omitempty"`
	Content      string `json:"content"`
	Reasoning    string `json:"reasoning,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// HasThinking reports whether the model produced reasoning output,
// either as visible text or as billed reasoning tokens.
func (r *StandardizedResponse) HasThinking() bool {
	if r.Reasoning != "" {
		return true
	}
	return r.Usage != nil && r.Usage.CompletionTokensDetails != nil &&
		r.Usage.CompletionTokensDetails.ReasoningTokens > 0
}

// Response is the outcome of one logical call: a standardized result
// or an ErrorInfo, never both. Construct with NewSuccess or
// NewFailure, which keep the two sides exclusive. Raw preserves the
// provider payload when one was read.
type Response struct {
	Success  bool                  `json:"success"`
	Response *StandardizedResponse `json:"response,omitempty"`
	Error    *ErrorInfo            `json:"error,omitempty"`
	Raw      json.RawMessage       `json:"raw,omitempty"`
}

// NewSuccess wraps a standardized result.
func NewSuccess(resp *StandardizedResponse, raw json.RawMessage) *Response {
	return &Response{Success: true, Response: resp, Raw: raw}
}

// NewFailure wraps an ErrorInfo.
func NewFailure(info *ErrorInfo, raw json.RawMessage) *Response {
	return &Response{Success: false, Error: info, Raw: raw}
}
