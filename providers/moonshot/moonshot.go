// Package moonshot adapts the Moonshot AI API, an
// OpenAI-compatible chat-completions service.
package moonshot

import (
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "moonshot"
	APIBase      = "https://api.moonshot.ai/v1"
	APIKeyEnvVar = "MOONSHOT_API_KEY"
)

// New returns a Moonshot provider adapter.
func New(opts ...openaistyle.Option) *openaistyle.Provider {
	return openaistyle.New(Name, APIBase, APIKeyEnvVar, opts...)
}
