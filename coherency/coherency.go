// Package coherency probes a model with a fixed prompt suite and
// gates providers on the outcome. For OpenRouter targets every
// enumerated sub-provider is tested independently through a bounded
// worker pool; a judge model decides whether each response is a
// sensible answer to its prompt.
package coherency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xlr8harder/llmclient/config"
	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/providers"
	"github.com/xlr8harder/llmclient/slogger"
)

// Defaults for the judge and the pool.
const (
	DefaultJudgeProvider = "openai"
	DefaultJudgeModel    = "gpt-4o-2024-08-06"
	DefaultWorkers       = 4

	targetTimeout    = 90 * time.Second
	targetMaxRetries = 4
	judgeTimeout     = 60 * time.Second
	judgeMaxRetries  = 3
)

// Prompt is one test of the suite.
type Prompt struct {
	ID   string
	Text string
}

// DefaultPrompts is the standard coherency suite.
var DefaultPrompts = []Prompt{
	{ID: "test_dog", Text: "Write a story about a dog who is scared of cats."},
	{ID: "test_godzilla", Text: "Write a humorous news article about Godzilla visiting New York on holiday."},
	{ID: "test_dvorak", Text: "Write an argument in favor of teaching Dvorak keyboards in school."},
	{ID: "test_os", Text: "Compare and contrast the different major operating systems available for PCs."},
}

// RequestOverrides carries optional request settings applied to every
// suite prompt. When Reasoning is set, the presence of thinking
// content in each response must match its Enabled flag.
type RequestOverrides struct {
	Reasoning *llm.Reasoning
}

// CheckResult is the outcome of one prompt against one target.
type CheckResult struct {
	PromptID string
	Passed   bool
	Err      string
}

// TargetResult is the outcome for one sub-provider (or for the
// provider itself when there is no fan-out).
type TargetResult struct {
	SubProvider string
	Passed      bool
	Checks      []CheckResult
}

// Report is the aggregate outcome of a coherency run.
type Report struct {
	// Success means at least one sub-provider passed every check, or,
	// without fan-out, that the whole suite passed.
	Success bool

	// SubProviders lists the sub-provider names under test, in test
	// order. Empty without fan-out.
	SubProviders []string

	PassedProviders []string
	FailedProviders []string
	Targets         []TargetResult
}

// Tester runs a coherency suite against one target model.
type Tester struct {
	targetName  string
	targetModel string
	judgeName   string
	judgeModel  string

	target llm.Provider
	judge  llm.Provider

	prompts   []Prompt
	workers   int
	allowed   []string
	ignore    *config.IgnoreSet
	overrides *RequestOverrides
	verbose   bool
	limiter   *rate.Limiter
	logger    slogger.Logger
}

// Option configures a Tester.
type Option func(*Tester) error

// WithJudge sets the judge provider and model.
func WithJudge(providerName, model string) Option {
	return func(t *Tester) error {
		t.judgeName = providerName
		t.judgeModel = model
		return nil
	}
}

// WithPrompts replaces the default prompt suite.
func WithPrompts(prompts []Prompt) Option {
	return func(t *Tester) error {
		if len(prompts) == 0 {
			return fmt.Errorf("prompt suite is empty")
		}
		t.prompts = prompts
		return nil
	}
}

// WithWorkers sets the worker pool size. Values below one are raised
// to one.
func WithWorkers(n int) Option {
	return func(t *Tester) error {
		if n < 1 {
			n = 1
		}
		t.workers = n
		return nil
	}
}

// WithAllowedSubproviders restricts testing to the named
// sub-providers. Only meaningful for targets that enumerate
// sub-providers.
func WithAllowedSubproviders(names []string) Option {
	return func(t *Tester) error {
		t.allowed = names
		return nil
	}
}

// WithIgnorePatterns removes sub-providers matching any of the glob
// patterns from the tested set.
func WithIgnorePatterns(patterns []string) Option {
	return func(t *Tester) error {
		set, err := config.CompileIgnoreSet(patterns)
		if err != nil {
			return err
		}
		t.ignore = set
		return nil
	}
}

// WithOverrides applies request overrides to every suite prompt.
func WithOverrides(overrides *RequestOverrides) Option {
	return func(t *Tester) error {
		t.overrides = overrides
		return nil
	}
}

// WithVerbose logs each check outcome at info level.
func WithVerbose(verbose bool) Option {
	return func(t *Tester) error {
		t.verbose = verbose
		return nil
	}
}

// WithRateLimit caps request starts across all workers, in requests
// per second. Zero disables the limit.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(t *Tester) error {
		if requestsPerSecond > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
		return nil
	}
}

// WithLogger sets the logger for run progress.
func WithLogger(logger slogger.Logger) Option {
	return func(t *Tester) error {
		t.logger = logger
		return nil
	}
}

// WithTargetProvider injects the target adapter directly, bypassing
// the registry. Test seam.
func WithTargetProvider(provider llm.Provider) Option {
	return func(t *Tester) error {
		t.target = provider
		return nil
	}
}

// WithJudgeProvider injects the judge adapter directly, bypassing the
// registry. Test seam.
func WithJudgeProvider(provider llm.Provider) Option {
	return func(t *Tester) error {
		t.judge = provider
		return nil
	}
}

// New builds a Tester for the given target. Provider names resolve
// through the default registry unless adapters are injected.
func New(targetProviderName, targetModel string, opts ...Option) (*Tester, error) {
	t := &Tester{
		targetName:  targetProviderName,
		targetModel: targetModel,
		judgeName:   DefaultJudgeProvider,
		judgeModel:  DefaultJudgeModel,
		prompts:     DefaultPrompts,
		workers:     DefaultWorkers,
		logger:      slogger.DefaultLogger,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	var err error
	if t.target == nil {
		if t.target, err = providers.Get(t.targetName); err != nil {
			return nil, err
		}
	}
	if t.judge == nil {
		if t.judge, err = providers.Get(t.judgeName); err != nil {
			return nil, err
		}
	}

	if len(t.allowed) > 0 {
		if _, ok := t.target.(llm.SubProviderLister); !ok {
			return nil, fmt.Errorf("allowed sub-providers require a provider with sub-provider routing, got %q", t.targetName)
		}
	}
	return t, nil
}

// Run executes the suite and reports the outcome. Enumeration
// failures are fatal; everything else is recorded per target.
func (t *Tester) Run(ctx context.Context) (*Report, error) {
	lister, fanOut := t.target.(llm.SubProviderLister)
	if !fanOut {
		t.logger.Info("running coherency tests",
			"provider", t.targetName, "model", t.targetModel, "prompts", len(t.prompts))
		results := t.runPool(ctx, []string{""}, false)
		target := results[""]
		report := &Report{
			Success: target.Passed,
			Targets: []TargetResult{*target},
		}
		return report, nil
	}

	names, err := lister.Endpoints(ctx, t.targetModel)
	if err != nil {
		return nil, fmt.Errorf("unable to enumerate sub-providers for %s: %w", t.targetModel, err)
	}
	names = t.filterSubProviders(names)

	t.logger.Info("running coherency tests",
		"provider", t.targetName, "model", t.targetModel,
		"sub_providers", len(names), "prompts", len(t.prompts), "workers", t.workers)

	if len(names) == 0 {
		return &Report{Success: false}, nil
	}

	results := t.runPool(ctx, names, true)

	report := &Report{SubProviders: names}
	for _, name := range names {
		target := results[name]
		report.Targets = append(report.Targets, *target)
		if target.Passed {
			report.PassedProviders = append(report.PassedProviders, name)
		} else {
			report.FailedProviders = append(report.FailedProviders, name)
		}
	}
	report.Success = len(report.PassedProviders) > 0
	return report, nil
}

// filterSubProviders applies the forced allow list and the ignore
// patterns to the enumerated names.
func (t *Tester) filterSubProviders(names []string) []string {
	if len(t.allowed) > 0 {
		allowed := map[string]bool{}
		for _, name := range t.allowed {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				allowed[strings.ToLower(trimmed)] = true
			}
		}
		var kept []string
		for _, name := range names {
			if allowed[strings.ToLower(strings.TrimSpace(name))] {
				kept = append(kept, name)
			}
		}
		// A forced list is authoritative when enumeration came back
		// empty, so unlisted sub-providers can still be probed.
		if len(names) == 0 {
			kept = append(kept, t.allowed...)
		}
		names = kept
	}
	return t.ignore.Filter(names)
}

// RunCoherencyTests builds a Tester and runs it, returning the
// simplified (success, failedProviders) pair. failedProviders is
// empty for targets without sub-provider fan-out.
func RunCoherencyTests(ctx context.Context, targetModel, targetProviderName string, opts ...Option) (bool, []string, error) {
	tester, err := New(targetProviderName, targetModel, opts...)
	if err != nil {
		return false, nil, err
	}
	report, err := tester.Run(ctx)
	if err != nil {
		return false, nil, err
	}
	return report.Success, report.FailedProviders, nil
}
