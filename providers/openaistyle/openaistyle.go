// Package openaistyle implements the chat-completions dialect shared
// by OpenAI-compatible providers. Concrete providers are thin
// wrappers that supply a name, an API base and a key environment
// variable; OpenRouter additionally enables routing preferences.
package openaistyle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/xlr8harder/llmclient/llm"
)

var (
	DefaultMaxTokens = 4096
	DefaultTimeout   = 60 * time.Second
	DefaultClient    = &http.Client{}
)

var _ llm.Provider = &Provider{}

// Provider speaks the chat-completions dialect against one API base.
// Safe for concurrent use.
type Provider struct {
	name           string
	apiBase        string
	keyEnvVar      string
	apiKey         string
	client         *http.Client
	maxTokens      int
	defaultTimeout time.Duration
	idleTimeout    time.Duration
	routing        bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithAPIKey overrides the key read from the environment.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// WithAPIBase overrides the API base URL.
func WithAPIBase(base string) Option {
	return func(p *Provider) { p.apiBase = base }
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithMaxTokens sets the completion cap used when a request does not
// carry one.
func WithMaxTokens(n int) Option {
	return func(p *Provider) { p.maxTokens = n }
}

// WithDefaultTimeout sets the per-attempt deadline used when a
// request does not carry a timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(p *Provider) { p.defaultTimeout = d }
}

// WithIdleTimeout bounds the gap between consecutive stream events.
// Zero disables the bound.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Provider) { p.idleTimeout = d }
}

// WithRouting enables serialization of allow/ignore routing lists.
// Only OpenRouter understands these; other providers reject them.
func WithRouting() Option {
	return func(p *Provider) { p.routing = true }
}

// New returns a provider adapter for the given dialect endpoint.
func New(name, apiBase, keyEnvVar string, opts ...Option) *Provider {
	p := &Provider{
		name:           name,
		apiBase:        apiBase,
		keyEnvVar:      keyEnvVar,
		client:         DefaultClient,
		maxTokens:      DefaultMaxTokens,
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) SupportsStreaming() bool {
	return true
}

// resolveKey returns the API key, preferring an explicit override
// over the environment.
func (p *Provider) resolveKey() (string, *llm.ErrorInfo) {
	if p.apiKey != "" {
		return p.apiKey, nil
	}
	if key := os.Getenv(p.keyEnvVar); key != "" {
		return key, nil
	}
	return "", llm.NewError(llm.ErrorKindAuth,
		fmt.Sprintf("Required API key environment variable '%s' is not set", p.keyEnvVar))
}

// ChatCompletion performs one request attempt. All validation happens
// before any network I/O.
func (p *Provider) ChatCompletion(ctx context.Context, req *llm.Request) *llm.Response {
	if info := req.Validate(); info != nil {
		return llm.NewFailure(info, nil)
	}
	if !p.routing && (len(req.AllowList) > 0 || len(req.IgnoreList) > 0) {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidOption,
			fmt.Sprintf("provider %q does not support sub-provider routing lists", p.name)), nil)
	}
	apiKey, info := p.resolveKey()
	if info != nil {
		return llm.NewFailure(info, nil)
	}

	streaming := req.Transport == llm.TransportStream
	body, err := json.Marshal(p.buildBody(req, streaming))
	if err != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidRequest,
			fmt.Sprintf("error marshaling request: %v", err)), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, req.AttemptTimeout(p.defaultTimeout))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidRequest, err.Error()), nil)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return llm.NewFailure(llm.Classify(err), nil)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return llm.NewFailure(llm.ClassifyStatus(resp.StatusCode, errBody), errBody)
	}

	if streaming {
		return p.aggregateStream(resp.Body)
	}
	defer resp.Body.Close()
	return p.parseResponse(resp.Body)
}

// buildBody assembles the wire request.
func (p *Provider) buildBody(req *llm.Request, streaming bool) *chatRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}
	body := &chatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: maxTokens,
		Stream:    streaming,
		Reasoning: req.Reasoning,
	}
	if p.routing {
		if len(req.AllowList) > 0 {
			noFallbacks := false
			body.Provider = &providerRouting{
				Order:          req.AllowList,
				AllowFallbacks: &noFallbacks,
			}
		} else if len(req.IgnoreList) > 0 {
			body.Provider = &providerRouting{Ignore: req.IgnoreList}
		}
	}
	return body
}

// parseResponse handles a buffered 200 reply.
func (p *Provider) parseResponse(body io.Reader) *llm.Response {
	raw, err := io.ReadAll(body)
	if err != nil {
		return llm.NewFailure(llm.Classify(err), nil)
	}
	var reply chatResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindUnknown,
			fmt.Sprintf("error decoding response: %v", err)), raw)
	}
	if reply.hasError() {
		return llm.NewFailure(llm.NewError(llm.ErrorKindAPIError, reply.errorMessage()), raw)
	}
	if len(reply.Choices) > 0 {
		if info := contentFilterError(&reply.Choices[0]); info != nil {
			return llm.NewFailure(info, raw)
		}
	}
	return llm.NewSuccess(p.standardize(&reply), raw)
}

// contentFilterError reports a choice-level content filter or error
// object, which providers return inside an otherwise-200 body.
func contentFilterError(c *choice) *llm.ErrorInfo {
	if c.Error != nil {
		message := c.Error.Message
		if message == "" {
			message = "Content filtered"
		}
		return llm.NewError(llm.ErrorKindContentFilter, message)
	}
	if c.FinishReason == "content_filter" {
		return llm.NewError(llm.ErrorKindContentFilter, "Response stopped due to content filter")
	}
	return nil
}

// standardize maps the wire reply into the canonical shape. Absent
// fields stay at their zero values.
func (p *Provider) standardize(reply *chatResponse) *llm.StandardizedResponse {
	out := &llm.StandardizedResponse{
		ID:          reply.ID,
		Created:     reply.Created,
		Model:       reply.Model,
		Provider:    p.name,
		SubProvider: reply.Provider,
		Usage:       reply.Usage,
	}
	if len(reply.Choices) > 0 {
		c := reply.Choices[0]
		out.Content = c.Message.Content
		out.Reasoning = c.Message.Reasoning
		out.FinishReason = c.FinishReason
	}
	return out
}
