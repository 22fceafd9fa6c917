// Package tngtech adapts the TNG Technology chat API, an
// OpenAI-compatible chat-completions service.
package tngtech

import (
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "tngtech"
	APIBase      = "https://chat.model.tngtech.com/v1"
	APIKeyEnvVar = "TNGTECH_API_KEY"
)

// New returns a TNG Technology provider adapter.
func New(opts ...openaistyle.Option) *openaistyle.Provider {
	return openaistyle.New(Name, APIBase, APIKeyEnvVar, opts...)
}
