package google

import (
	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/providers"
)

func init() {
	providers.Register(Name, func() llm.Provider { return New() })
}
