// Command coherency runs the coherency suite against a model and
// prints a per-sub-provider gating table. Exit codes: 0 when at least
// one target passed, 1 when none did, 2 on usage errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/xlr8harder/llmclient/coherency"
	"github.com/xlr8harder/llmclient/config"
	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/slogger"
)

var errorStyle = color.New(color.FgRed)

func usageError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, errorStyle.Sprint(msg)+"\n", args...)
	os.Exit(2)
}

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type options struct {
	model            string
	providerName     string
	workers          int
	judgeProvider    string
	judgeModel       string
	suitePattern     string
	forced           stringList
	reasoningOn      bool
	reasoningOff     bool
	reasoningTokens  int
	reasoningEffort  string
	rateLimit        float64
	verbose          bool
	watch            bool
	logLevel         string
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.model, "model", "", "Model identifier (required)")
	flag.StringVar(&opts.providerName, "provider", "openrouter", "Target provider name")
	flag.IntVar(&opts.workers, "workers", coherency.DefaultWorkers, "Worker pool size")
	flag.StringVar(&opts.judgeProvider, "judge-provider", coherency.DefaultJudgeProvider, "Judge provider name")
	flag.StringVar(&opts.judgeModel, "judge-model", coherency.DefaultJudgeModel, "Judge model identifier")
	flag.StringVar(&opts.suitePattern, "suite", "", "Suite file or ** glob (default: built-in prompts)")
	flag.Var(&opts.forced, "force-subprovider", "Test only this sub-provider (repeatable)")
	flag.BoolVar(&opts.reasoningOn, "reasoning", false, "Require thinking content in responses")
	flag.BoolVar(&opts.reasoningOff, "no-reasoning", false, "Require absence of thinking content")
	flag.IntVar(&opts.reasoningTokens, "reasoning-tokens", 0, "Thinking token budget (with -reasoning)")
	flag.StringVar(&opts.reasoningEffort, "reasoning-effort", "", "Thinking effort: low|medium|high (with -reasoning)")
	flag.Float64Var(&opts.rateLimit, "rate-limit", 0, "Max request starts per second (0 = unlimited)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Log each check outcome")
	flag.BoolVar(&opts.watch, "watch", false, "Re-run when the suite file changes")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	flag.Parse()

	if opts.model == "" {
		usageError("Error: -model is required")
	}
	if opts.reasoningOn && opts.reasoningOff {
		usageError("Error: -reasoning and -no-reasoning are mutually exclusive")
	}
	if opts.reasoningTokens > 0 && opts.reasoningEffort != "" {
		usageError("Error: -reasoning-tokens and -reasoning-effort are mutually exclusive")
	}
	if (opts.reasoningTokens > 0 || opts.reasoningEffort != "") && !opts.reasoningOn {
		usageError("Error: -reasoning-tokens and -reasoning-effort require -reasoning")
	}
	if opts.watch && opts.suitePattern == "" {
		usageError("Error: -watch requires -suite")
	}
	return opts
}

// loadSuite merges the discovered suite files into prompt and ignore
// lists. Without -suite the built-in defaults apply.
func loadSuite(pattern string) ([]coherency.Prompt, []string, error) {
	if pattern == "" {
		return coherency.DefaultPrompts, nil, nil
	}
	paths, err := config.DiscoverSuites(pattern)
	if err != nil {
		return nil, nil, err
	}
	var prompts []coherency.Prompt
	var ignore []string
	for _, path := range paths {
		suite, err := config.ParseFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, p := range suite.Prompts {
			prompts = append(prompts, coherency.Prompt{ID: p.ID, Text: p.Prompt})
		}
		ignore = append(ignore, suite.IgnoreSubproviders...)
	}
	return prompts, ignore, nil
}

func buildTesterOptions(opts *options, logger slogger.Logger) ([]coherency.Option, error) {
	prompts, ignore, err := loadSuite(opts.suitePattern)
	if err != nil {
		return nil, err
	}

	testerOpts := []coherency.Option{
		coherency.WithJudge(opts.judgeProvider, opts.judgeModel),
		coherency.WithPrompts(prompts),
		coherency.WithWorkers(opts.workers),
		coherency.WithVerbose(opts.verbose),
		coherency.WithLogger(logger),
	}
	if len(ignore) > 0 {
		testerOpts = append(testerOpts, coherency.WithIgnorePatterns(ignore))
	}
	if len(opts.forced) > 0 {
		testerOpts = append(testerOpts, coherency.WithAllowedSubproviders(opts.forced))
	}
	if opts.rateLimit > 0 {
		testerOpts = append(testerOpts, coherency.WithRateLimit(opts.rateLimit))
	}
	if opts.reasoningOn || opts.reasoningOff {
		reasoning := &llm.Reasoning{
			Enabled:   opts.reasoningOn,
			MaxTokens: opts.reasoningTokens,
			Effort:    opts.reasoningEffort,
		}
		testerOpts = append(testerOpts,
			coherency.WithOverrides(&coherency.RequestOverrides{Reasoning: reasoning}))
	}
	return testerOpts, nil
}

// runOnce executes one coherency run and renders the result. Returns
// true when the run passed.
func runOnce(ctx context.Context, opts *options, logger slogger.Logger) (bool, error) {
	testerOpts, err := buildTesterOptions(opts, logger)
	if err != nil {
		return false, err
	}
	tester, err := coherency.New(opts.providerName, opts.model, testerOpts...)
	if err != nil {
		return false, err
	}
	report, err := tester.Run(ctx)
	if err != nil {
		return false, err
	}
	renderReport(os.Stdout, opts.model, report)
	return report.Success, nil
}

func main() {
	opts := parseFlags()

	// Best effort; keys may come from the real environment instead
	_ = godotenv.Load()

	logger := slogger.New(slogger.LevelFromString(opts.logLevel))
	ctx := slogger.WithLogger(context.Background(), logger)

	if opts.watch {
		watchAndRun(ctx, opts, logger)
		return
	}

	passed, err := runOnce(ctx, opts, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Sprintf("Error: %s", err))
		os.Exit(2)
	}
	if !passed {
		os.Exit(1)
	}
}

// watchAndRun re-runs the suite whenever a discovered suite file
// changes. Runs until interrupted.
func watchAndRun(ctx context.Context, opts *options, logger slogger.Logger) {
	paths, err := config.DiscoverSuites(opts.suitePattern)
	if err != nil {
		usageError("Error: %s", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		usageError("Error: %s", err)
	}
	defer watcher.Close()
	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			usageError("Error: unable to watch %s: %s", path, err)
		}
	}

	run := func() {
		if _, err := runOnce(ctx, opts, logger); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Sprintf("Error: %s", err))
		}
	}
	run()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Info("suite changed, re-running", "file", event.Name)
				run()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watch error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
