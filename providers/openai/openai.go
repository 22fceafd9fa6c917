// Package openai adapts the OpenAI chat-completions API.
package openai

import (
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "openai"
	APIBase      = "https://api.openai.com/v1"
	APIKeyEnvVar = "OPENAI_API_KEY"
)

// New returns an OpenAI provider adapter.
func New(opts ...openaistyle.Option) *openaistyle.Provider {
	return openaistyle.New(Name, APIBase, APIKeyEnvVar, opts...)
}
