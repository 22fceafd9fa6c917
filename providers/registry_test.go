package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlr8harder/llmclient/llm"
)

type fakeProvider struct{ name string }

func (p *fakeProvider) Name() string            { return p.name }
func (p *fakeProvider) SupportsStreaming() bool { return false }
func (p *fakeProvider) ChatCompletion(ctx context.Context, req *llm.Request) *llm.Response {
	return llm.NewFailure(llm.NewError(llm.ErrorKindUnknown, "fake"), nil)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	registry.Register("Acme", func() llm.Provider { return &fakeProvider{name: "acme"} })

	provider, err := registry.Get("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", provider.Name())

	// Lookups are case-insensitive and trim whitespace
	provider, err = registry.Get(" ACME ")
	require.NoError(t, err)
	assert.Equal(t, "acme", provider.Name())
}

func TestRegistryUnknownName(t *testing.T) {
	registry := NewRegistry()
	registry.Register("acme", func() llm.Provider { return &fakeProvider{name: "acme"} })

	_, err := registry.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Contains(t, err.Error(), "acme", "error should name the valid set")
}

func TestRegistryDuplicatePanics(t *testing.T) {
	registry := NewRegistry()
	registry.Register("acme", func() llm.Provider { return &fakeProvider{name: "acme"} })
	assert.Panics(t, func() {
		registry.Register("ACME", func() llm.Provider { return &fakeProvider{name: "acme"} })
	})
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		name := name
		registry.Register(name, func() llm.Provider { return &fakeProvider{name: name} })
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, registry.Names())
}
