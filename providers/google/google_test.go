package google

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

func testRequest(messages ...llm.Message) *llm.Request {
	if len(messages) == 0 {
		messages = []llm.Message{llm.NewUserMessage("hello")}
	}
	return &llm.Request{Messages: messages, Model: "gemini-test"}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(WithAPIKey("test-key"), WithAPIBase(server.URL))
}

func successBody() string {
	return `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "Hello "}, {"text": "there!"}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 3, "totalTokenCount": 7},
		"modelVersion": "gemini-test-001"
	}`
}

func TestChatCompletionSuccess(t *testing.T) {
	var gotPath, gotQuery string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(successBody()))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.True(t, resp.Success)
	assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "key=test-key", gotQuery)

	standardized := resp.Response
	assert.Equal(t, "Hello there!", standardized.Content, "parts concatenate")
	assert.Equal(t, "stop", standardized.FinishReason)
	assert.Equal(t, "gemini-test-001", standardized.Model)
	assert.Equal(t, "google", standardized.Provider)
	require.NotNil(t, standardized.Usage)
	assert.Equal(t, 4, standardized.Usage.PromptTokens)
	assert.Equal(t, 3, standardized.Usage.CompletionTokens)
	assert.Equal(t, 7, standardized.Usage.TotalTokens)
}

func TestRequestShapeSingleUserMessage(t *testing.T) {
	var gotBody generateRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(successBody()))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.True(t, resp.Success)

	require.Len(t, gotBody.Contents, 1)
	assert.Empty(t, gotBody.Contents[0].Role, "a lone user message carries no role")
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "hello", gotBody.Contents[0].Parts[0].Text)

	require.Len(t, gotBody.SafetySettings, 4)
	for _, setting := range gotBody.SafetySettings {
		assert.Equal(t, "BLOCK_NONE", setting.Threshold)
	}
}

func TestRequestShapeConversation(t *testing.T) {
	var gotBody generateRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(successBody()))
	})

	req := testRequest(
		llm.NewSystemMessage("be nice"),
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("hello"),
		llm.Message{Role: llm.User, Content: ""},
		llm.NewUserMessage("bye"),
	)
	resp := provider.ChatCompletion(context.Background(), req)
	require.True(t, resp.Success)

	require.Len(t, gotBody.Contents, 4, "empty messages are skipped")
	assert.Equal(t, "user", gotBody.Contents[0].Role, "system maps to user")
	assert.Equal(t, "user", gotBody.Contents[1].Role)
	assert.Equal(t, "model", gotBody.Contents[2].Role, "assistant maps to model")
	assert.Equal(t, "user", gotBody.Contents[3].Role)
}

func TestMaxTokensForwarded(t *testing.T) {
	var gotBody generateRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(successBody()))
	})

	req := testRequest()
	req.MaxTokens = 2048
	resp := provider.ChatCompletion(context.Background(), req)
	require.True(t, resp.Success)
	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, 2048, gotBody.GenerationConfig.MaxOutputTokens)
}

func TestFinishReasonMapping(t *testing.T) {
	cases := []struct {
		upstream string
		want     string
	}{
		{"STOP", "stop"},
		{"MAX_TOKENS", "length"},
		{"SOMETHING_NEW", "something_new"},
	}
	for _, tc := range cases {
		t.Run(tc.upstream, func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				body := `{"candidates": [{"content": {"parts": [{"text": "x"}]}, "finishReason": "` + tc.upstream + `"}]}`
				w.Write([]byte(body))
			})
			resp := provider.ChatCompletion(context.Background(), testRequest())
			require.True(t, resp.Success)
			assert.Equal(t, tc.want, resp.Response.FinishReason)
		})
	}
}

func TestSafetyFinishReasonsAreContentFilterFailures(t *testing.T) {
	for _, reason := range []string{"SAFETY", "RECITATION", "OTHER"} {
		t.Run(reason, func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				body := `{"candidates": [{"content": {"parts": []}, "finishReason": "` + reason + `"}]}`
				w.Write([]byte(body))
			})
			resp := provider.ChatCompletion(context.Background(), testRequest())
			require.False(t, resp.Success)
			assert.Equal(t, llm.ErrorKindContentFilter, resp.Error.Type)
			assert.Contains(t, resp.Error.Message, reason)
		})
	}
}

func TestPromptBlocked(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindContentFilter, resp.Error.Type)
	assert.Contains(t, resp.Error.Message, "Prompt blocked due to: SAFETY")
}

func TestInBandErrorObject(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"code": 8, "message": "quota exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindAPIError, resp.Error.Type)
	assert.Equal(t, "quota exhausted", resp.Error.Message)
}

func TestErrorStatusClassified(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"message": "try later"}}`))
	})

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindServerError, resp.Error.Type)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, "try later", resp.Error.Message)
}

func TestStreamTransportRejected(t *testing.T) {
	var calls atomic.Int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	req := testRequest()
	req.Transport = llm.TransportStream
	resp := provider.ChatCompletion(context.Background(), req)
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindInvalidOption, resp.Error.Type)
	assert.Zero(t, calls.Load())
	assert.False(t, provider.SupportsStreaming())
}

func TestRoutingListsRejected(t *testing.T) {
	var calls atomic.Int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	req := testRequest()
	req.AllowList = []string{"anything"}
	resp := provider.ChatCompletion(context.Background(), req)
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindInvalidOption, resp.Error.Type)
	assert.Zero(t, calls.Load())
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()
	provider := New(WithAPIBase(server.URL))

	resp := provider.ChatCompletion(context.Background(), testRequest())
	require.False(t, resp.Success)
	assert.Equal(t, llm.ErrorKindAuth, resp.Error.Type)
	assert.Contains(t, resp.Error.Message, APIKeyEnvVar)
	assert.Zero(t, calls.Load())
}
