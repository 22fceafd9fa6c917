// Package fireworks adapts the Fireworks AI inference API, an
// OpenAI-compatible chat-completions service.
package fireworks

import (
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "fireworks"
	APIBase      = "https://api.fireworks.ai/inference/v1"
	APIKeyEnvVar = "FIREWORKS_API_KEY"
)

// New returns a Fireworks provider adapter.
func New(opts ...openaistyle.Option) *openaistyle.Provider {
	return openaistyle.New(Name, APIBase, APIKeyEnvVar, opts...)
}
