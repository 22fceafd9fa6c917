// Package llmclient unifies multiple remote LLM HTTP APIs behind one
// request/response contract. Callers look up a provider adapter by
// name, build an llm.Request, and execute it through retry.Request;
// every call yields exactly one llm.Response whose error taxonomy
// drives retry decisions. The coherency package layers provider
// gating on top of the same execution path.
package llmclient

import (
	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/providers"

	// Bundled provider adapters register themselves at init time.
	_ "github.com/xlr8harder/llmclient/providers/chutes"
	_ "github.com/xlr8harder/llmclient/providers/fireworks"
	_ "github.com/xlr8harder/llmclient/providers/google"
	_ "github.com/xlr8harder/llmclient/providers/moonshot"
	_ "github.com/xlr8harder/llmclient/providers/openai"
	_ "github.com/xlr8harder/llmclient/providers/openrouter"
	_ "github.com/xlr8harder/llmclient/providers/tngtech"
	_ "github.com/xlr8harder/llmclient/providers/xai"
)

// GetProvider returns the provider adapter registered under the given
// name, case-insensitively. Unknown names are a configuration error
// naming the valid set.
func GetProvider(name string) (llm.Provider, error) {
	return providers.Get(name)
}

// ProviderNames returns the sorted names of all bundled providers.
func ProviderNames() []string {
	return providers.Names()
}
