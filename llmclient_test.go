package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProvider(t *testing.T) {
	expected := []string{
		"chutes", "fireworks", "google", "moonshot",
		"openai", "openrouter", "tngtech", "xai",
	}
	assert.Equal(t, expected, ProviderNames())

	for _, name := range expected {
		provider, err := GetProvider(name)
		require.NoError(t, err, "provider %s", name)
		assert.Equal(t, name, provider.Name())
	}

	// Case-insensitive lookup
	provider, err := GetProvider("OpenRouter")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", provider.Name())

	_, err = GetProvider("anthropic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter", "error names the valid set")
}

func TestStreamingSupportByProvider(t *testing.T) {
	streaming := map[string]bool{
		"openai":     true,
		"openrouter": true,
		"fireworks":  true,
		"chutes":     true,
		"moonshot":   true,
		"tngtech":    true,
		"xai":        true,
		"google":     false,
	}
	for name, want := range streaming {
		provider, err := GetProvider(name)
		require.NoError(t, err)
		assert.Equal(t, want, provider.SupportsStreaming(), "provider %s", name)
	}
}
