// Package chutes adapts the Chutes serverless inference API, an
// OpenAI-compatible chat-completions service.
package chutes

import (
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "chutes"
	APIBase      = "https://llm.chutes.ai/v1"
	APIKeyEnvVar = "CHUTES_API_TOKEN"
)

// New returns a Chutes provider adapter.
func New(opts ...openaistyle.Option) *openaistyle.Provider {
	return openaistyle.New(Name, APIBase, APIKeyEnvVar, opts...)
}
