package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *Request {
	return &Request{
		Messages: []Message{NewUserMessage("hello")},
		Model:    "test-model",
	}
}

func TestRequestValidateOK(t *testing.T) {
	require.Nil(t, validRequest().Validate())

	req := validRequest()
	req.Transport = TransportStream
	req.Stream = true
	req.Timeout = NewConnectReadTimeout(5*time.Second, 30*time.Second)
	req.MaxRetries = Ptr(0)
	req.Reasoning = &Reasoning{Enabled: true, MaxTokens: 2048}
	require.Nil(t, req.Validate())
}

func TestRequestValidateMessagesAndModel(t *testing.T) {
	req := &Request{Model: "m"}
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.False(t, info.Retryable)

	req = &Request{Messages: []Message{NewUserMessage("hi")}}
	info = req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.Contains(t, info.Message, "model")
}

func TestRequestValidateRawStreamFlag(t *testing.T) {
	req := validRequest()
	req.Stream = true
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.False(t, info.Retryable)
	assert.Contains(t, info.Message, "transport")

	// The flag is permitted when the streaming transport is selected
	req.Transport = TransportStream
	require.Nil(t, req.Validate())
}

func TestRequestValidateTransport(t *testing.T) {
	for _, transport := range []Transport{"", TransportDefault, TransportStream} {
		req := validRequest()
		req.Transport = transport
		require.Nil(t, req.Validate(), "transport %q", transport)
	}

	req := validRequest()
	req.Transport = "websocket"
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.Contains(t, info.Message, "websocket")
}

func TestRequestValidateRoutingLists(t *testing.T) {
	req := validRequest()
	req.AllowList = []string{"DeepInfra"}
	require.Nil(t, req.Validate())

	req.IgnoreList = []string{"Novita"}
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.Contains(t, info.Message, "allow_list")
	assert.Contains(t, info.Message, "ignore_list")
}

func TestRequestValidateMaxRetries(t *testing.T) {
	req := validRequest()
	req.MaxRetries = Ptr(-1)
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.Contains(t, info.Message, "max_retries")
}

func TestRequestValidateTimeout(t *testing.T) {
	req := validRequest()
	req.Timeout = &Timeout{}
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)

	req.Timeout = &Timeout{Connect: -1 * time.Second, Read: 30 * time.Second}
	info = req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
}

func TestRequestValidateReasoning(t *testing.T) {
	req := validRequest()
	req.Reasoning = &Reasoning{Enabled: true, MaxTokens: 1024, Effort: EffortHigh}
	info := req.Validate()
	require.NotNil(t, info)
	assert.Equal(t, ErrorKindInvalidOption, info.Type)
	assert.Contains(t, info.Message, "max_tokens")
	assert.Contains(t, info.Message, "effort")

	req.Reasoning = &Reasoning{Enabled: true, Effort: "extreme"}
	info = req.Validate()
	require.NotNil(t, info)
	assert.Contains(t, info.Message, "extreme")

	req.Reasoning = &Reasoning{Enabled: true, MaxTokens: -5}
	require.NotNil(t, req.Validate())

	for _, effort := range []string{EffortLow, EffortMedium, EffortHigh} {
		req.Reasoning = &Reasoning{Enabled: true, Effort: effort}
		require.Nil(t, req.Validate(), "effort %q", effort)
	}
}

func TestRequestRetryBudget(t *testing.T) {
	req := validRequest()
	assert.Equal(t, DefaultMaxRetries, req.RetryBudget())

	req.MaxRetries = Ptr(0)
	assert.Equal(t, 0, req.RetryBudget())

	req.MaxRetries = Ptr(7)
	assert.Equal(t, 7, req.RetryBudget())
}

func TestRequestAttemptTimeout(t *testing.T) {
	req := validRequest()
	assert.Equal(t, time.Minute, req.AttemptTimeout(time.Minute))

	req.Timeout = NewTimeout(90 * time.Second)
	assert.Equal(t, 90*time.Second, req.AttemptTimeout(time.Minute))

	req.Timeout = NewConnectReadTimeout(10*time.Second, 80*time.Second)
	assert.Equal(t, 90*time.Second, req.AttemptTimeout(time.Minute))
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: User, Content: "a"}, NewUserMessage("a"))
	assert.Equal(t, Message{Role: Assistant, Content: "b"}, NewAssistantMessage("b"))
	assert.Equal(t, Message{Role: System, Content: "c"}, NewSystemMessage("c"))
}
