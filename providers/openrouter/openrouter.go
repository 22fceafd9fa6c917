// Package openrouter adapts the OpenRouter aggregation API. It
// extends the shared chat-completions dialect with sub-provider
// routing preferences, attribution headers, and enumeration of the
// sub-providers able to serve a model.
package openrouter

import (
	"net/http"
	"os"

	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/providers/openaistyle"
)

const (
	Name         = "openrouter"
	APIBase      = "https://openrouter.ai/api/v1"
	APIKeyEnvVar = "OPENROUTER_API_KEY"

	// Attribution header overrides.
	ReferrerEnvVar = "OPENROUTER_REFERRER"
	TitleEnvVar    = "OPENROUTER_TITLE"

	DefaultReferrer = "https://SpeechMap.ai"
	DefaultTitle    = "SpeechMap.ai"
)

var _ llm.Provider = &Provider{}
var _ llm.SubProviderLister = &Provider{}

// Provider wraps the shared dialect with OpenRouter specifics.
type Provider struct {
	*openaistyle.Provider

	apiBase string
	apiKey  string
	client  *http.Client
}

// Option configures the OpenRouter provider.
type Option func(*Provider)

// WithAPIKey overrides the key read from the environment.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// WithAPIBase overrides the API base URL.
func WithAPIBase(base string) Option {
	return func(p *Provider) { p.apiBase = base }
}

// WithHTTPClient sets the transport wrapped with attribution headers.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// New returns an OpenRouter provider adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiBase: APIBase,
		client:  openaistyle.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}

	// Every request carries the attribution headers, injected at the
	// transport so the shared dialect stays unaware of them.
	attributed := &http.Client{
		Timeout: p.client.Timeout,
		Transport: &attributionTransport{
			underlying: p.client.Transport,
			referrer:   envOrDefault(ReferrerEnvVar, DefaultReferrer),
			title:      envOrDefault(TitleEnvVar, DefaultTitle),
		},
	}
	p.client = attributed

	styleOpts := []openaistyle.Option{
		openaistyle.WithHTTPClient(attributed),
		openaistyle.WithRouting(),
	}
	if p.apiKey != "" {
		styleOpts = append(styleOpts, openaistyle.WithAPIKey(p.apiKey))
	}
	p.Provider = openaistyle.New(Name, p.apiBase, APIKeyEnvVar, styleOpts...)
	return p
}

func (p *Provider) Name() string {
	return Name
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// attributionTransport adds OpenRouter's app attribution headers to
// every outgoing request.
type attributionTransport struct {
	underlying http.RoundTripper
	referrer   string
	title      string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", t.referrer)
	req.Header.Set("X-Title", t.title)

	transport := t.underlying
	if transport == nil {
		transport = http.DefaultTransport
	}
	return transport.RoundTrip(req)
}
