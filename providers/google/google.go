// Package google adapts the Google Generative Language API. Its wire
// dialect differs from the chat-completions providers: nested content
// parts, its own finish-reason vocabulary, and safety feedback that
// can block a prompt outright.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/xlr8harder/llmclient/llm"
)

const (
	Name         = "google"
	APIBase      = "https://generativelanguage.googleapis.com/v1beta"
	APIKeyEnvVar = "GEMINI_API_KEY"
)

var (
	DefaultTimeout = 60 * time.Second
	DefaultClient  = &http.Client{}
)

// Safety categories forced to BLOCK_NONE on every request; filtering
// verdicts are surfaced through finish reasons instead of silent
// refusals.
var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// finishReasons maps Google's vocabulary to the shared one. Unlisted
// values pass through lowercased.
var finishReasons = map[string]string{
	"STOP":        "stop",
	"MAX_TOKENS":  "length",
	"SAFETY":      "content_filter",
	"RECITATION":  "content_filter",
	"OTHER":       "error",
	"UNSPECIFIED": "error",
}

var _ llm.Provider = &Provider{}

// Provider adapts the generateContent API.
type Provider struct {
	apiBase        string
	apiKey         string
	client         *http.Client
	defaultTimeout time.Duration
}

// Option configures the Google provider.
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

// WithDefaultTimeout sets the per-attempt deadline used when a
// request does not carry a timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(p *Provider) { p.defaultTimeout = d }
}

// New returns a Google provider adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiBase:        APIBase,
		client:         DefaultClient,
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return Name
}

// SupportsStreaming reports false: this adapter has no SSE path, so
// the streaming transport is rejected rather than silently downgraded.
func (p *Provider) SupportsStreaming() bool {
	return false
}

// ChatCompletion performs one request attempt.
func (p *Provider) ChatCompletion(ctx context.Context, req *llm.Request) *llm.Response {
	if info := req.Validate(); info != nil {
		return llm.NewFailure(info, nil)
	}
	if req.Transport == llm.TransportStream {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidOption,
			"provider \"google\" does not support streaming transport"), nil)
	}
	if len(req.AllowList) > 0 || len(req.IgnoreList) > 0 {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidOption,
			"provider \"google\" does not support sub-provider routing lists"), nil)
	}
	apiKey := p.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnvVar)
	}
	if apiKey == "" {
		return llm.NewFailure(llm.NewError(llm.ErrorKindAuth,
			fmt.Sprintf("Required API key environment variable '%s' is not set", APIKeyEnvVar)), nil)
	}

	body, err := json.Marshal(buildBody(req))
	if err != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidRequest,
			fmt.Sprintf("error marshaling request: %v", err)), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, req.AttemptTimeout(p.defaultTimeout))
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.apiBase, req.Model, apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindInvalidRequest, err.Error()), nil)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return llm.NewFailure(llm.Classify(err), nil)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.NewFailure(llm.Classify(err), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return llm.NewFailure(llm.ClassifyStatus(resp.StatusCode, raw), raw)
	}
	return parseResponse(raw)
}

// buildBody converts the canonical request into the generateContent
// shape. Empty messages are skipped; a lone user message is sent as a
// bare parts list with no role.
func buildBody(req *llm.Request) *generateRequest {
	var contents []content
	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == llm.Assistant {
			role = "model"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: msg.Content}},
		})
	}
	if len(contents) == 1 && contents[0].Role == "user" {
		contents[0].Role = ""
	}

	body := &generateRequest{Contents: contents}
	for _, category := range safetyCategories {
		body.SafetySettings = append(body.SafetySettings, safetySetting{
			Category:  category,
			Threshold: "BLOCK_NONE",
		})
	}
	if req.MaxTokens > 0 {
		body.GenerationConfig = &generationConfig{MaxOutputTokens: req.MaxTokens}
	}
	return body
}

// parseResponse handles a 200 reply, which can still carry a blocked
// prompt, a filtered candidate, or an in-band error object.
func parseResponse(raw []byte) *llm.Response {
	var reply generateResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindUnknown,
			fmt.Sprintf("error decoding response: %v", err)), raw)
	}

	if reply.Error != nil {
		return llm.NewFailure(llm.NewError(llm.ErrorKindAPIError, reply.Error.Message), raw)
	}
	if reply.PromptFeedback != nil && reply.PromptFeedback.BlockReason != "" {
		return llm.NewFailure(llm.NewError(llm.ErrorKindContentFilter,
			fmt.Sprintf("Prompt blocked due to: %s", reply.PromptFeedback.BlockReason)), raw)
	}
	if len(reply.Candidates) > 0 {
		switch reply.Candidates[0].FinishReason {
		case "SAFETY", "RECITATION", "OTHER":
			return llm.NewFailure(llm.NewError(llm.ErrorKindContentFilter,
				fmt.Sprintf("Response stopped due to: %s", reply.Candidates[0].FinishReason)), raw)
		}
	}
	return llm.NewSuccess(standardize(&reply), raw)
}

func standardize(reply *generateResponse) *llm.StandardizedResponse {
	out := &llm.StandardizedResponse{
		Model:    reply.ModelVersion,
		Provider: Name,
	}
	if len(reply.Candidates) > 0 {
		candidate := reply.Candidates[0]
		var text strings.Builder
		for _, p := range candidate.Content.Parts {
			text.WriteString(p.Text)
		}
		out.Content = text.String()
		out.FinishReason = mapFinishReason(candidate.FinishReason)
	}
	if reply.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     reply.UsageMetadata.PromptTokenCount,
			CompletionTokens: reply.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      reply.UsageMetadata.TotalTokenCount,
		}
	}
	return out
}

func mapFinishReason(reason string) string {
	if reason == "" {
		return ""
	}
	if mapped, ok := finishReasons[reason]; ok {
		return mapped
	}
	return strings.ToLower(reason)
}
