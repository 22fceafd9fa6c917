package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlr8harder/llmclient/llm"
)

func testRequest() *llm.Request {
	return &llm.Request{
		Messages: []llm.Message{llm.NewUserMessage("hello")},
		Model:    "some/model",
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(WithAPIKey("test-key"), WithAPIBase(server.URL))
}

func successBody() string {
	return `{
		"id": "gen-1",
		"model": "some/model",
		"provider": "DeepInfra",
		"choices": [{"message": {"content": "hi"}, "finish_reason": "stop"}]
	}`
}

func TestAttributionHeaders(t *testing.T) {
	var gotReferer, gotTitle string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		w.Write([]byte(successBody()))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.True(t, resp.Success)
	assert.Equal(t, DefaultReferrer, gotReferer)
	assert.Equal(t, DefaultTitle, gotTitle)
}

func TestAttributionHeaderEnvOverrides(t *testing.T) {
	t.Setenv(ReferrerEnvVar, "https://example.org")
	t.Setenv(TitleEnvVar, "Example App")

	var gotReferer, gotTitle string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		w.Write([]byte(successBody()))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.True(t, resp.Success)
	assert.Equal(t, "https://example.org", gotReferer)
	assert.Equal(t, "Example App", gotTitle)
}

func TestAllowListSerialization(t *testing.T) {
	var gotBody map[string]any
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(successBody()))
	})

	req := testRequest()
	req.AllowList = []string{"DeepInfra", "Together"}
	resp := provider.ChatCompletion(context.Background(), req)
	require.True(t, resp.Success)

	routing, ok := gotBody["provider"].(map[string]any)
	require.True(t, ok, "allow_list must serialize into the provider routing object")
	assert.Equal(t, []any{"DeepInfra", "Together"}, routing["order"])
	assert.Equal(t, false, routing["allow_fallbacks"])
	assert.NotContains(t, routing, "ignore")
}

func TestIgnoreListSerialization(t *testing.T) {
	var gotBody map[string]any
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(successBody()))
	})

	req := testRequest()
	req.IgnoreList = []string{"Novita"}
	resp := provider.ChatCompletion(context.Background(), req)
	require.True(t, resp.Success)

	routing, ok := gotBody["provider"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"Novita"}, routing["ignore"])
	assert.NotContains(t, routing, "order")
	assert.NotContains(t, routing, "allow_fallbacks")
}

func TestBothRoutingListsRejectedWithoutNetworkCall(t *testing.T) {
	var calls atomic.Int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	req := testRequest()
	req.AllowList = []string{"A"}
	req.IgnoreList = []string{"B"}
	resp := provider.ChatCompletion(context.Background(), req)
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindInvalidOption, resp.Error.Type)
	assert.False(t, resp.Error.Retryable)
	assert.Zero(t, calls.Load())
}

func TestSubProviderReported(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(successBody()))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.True(t, resp.Success)
	assert.Equal(t, "openrouter", resp.Response.Provider)
	assert.Equal(t, "DeepInfra", resp.Response.SubProvider)
}

func TestEndpointsListShape(t *testing.T) {
	var gotPath, gotAuth string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data": [
			{"provider_name": "Together"},
			{"provider_name": "DeepInfra"},
			{"provider_name": "Together"},
			{"provider_name": ""}
		]}`))
	})

	names, err := provider.Endpoints(context.Background(), "some/model")
	require.NoError(t, err)
	assert.Equal(t, []string{"DeepInfra", "Together"}, names, "de-duplicated and sorted")
	assert.Equal(t, "/models/some/model/endpoints", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestEndpointsObjectShape(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"endpoints": [
			{"provider_name": "Novita"},
			{"provider_name": "Hyperbolic"}
		]}}`))
	})

	names, err := provider.Endpoints(context.Background(), "some/model")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hyperbolic", "Novita"}, names)
}

func TestEndpointsErrorStatus(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := provider.Endpoints(context.Background(), "missing/model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestEndpointsMissingKey(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	provider := New(WithAPIBase("http://unused"))
	_, err := provider.Endpoints(context.Background(), "some/model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), APIKeyEnvVar)
}

func TestStreamingSupported(t *testing.T) {
	provider := New(WithAPIKey("k"))
	assert.True(t, provider.SupportsStreaming())
	assert.Equal(t, "openrouter", provider.Name())
}
