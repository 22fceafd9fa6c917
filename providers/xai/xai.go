// Package xai adapts the x.ai Grok API, an
// OpenAI-compatible chat-completions service.
package xai

import (
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "xai"
	APIBase      = "https://api.x.ai/v1"
	APIKeyEnvVar = "XAI_API_KEY"
)

// New returns an x.ai provider adapter.
func New(opts ...openaistyle.Option) *openaistyle.Provider {
	return openaistyle.New(Name, APIBase, APIKeyEnvVar, opts...)
}
