package coherency

import (
	"context"
	"fmt"

	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/retry"
)

// task is one (sub-provider, prompt) pair awaiting execution.
type task struct {
	subProvider string
	prompt      Prompt
}

// taskOutcome pairs a finished check with its sub-provider for the
// collector.
type taskOutcome struct {
	subProvider string
	check       CheckResult
}

// buildRoundRobinQueue interleaves prompts across sub-providers:
// prompt i of every sub-provider is queued before prompt i+1 of any,
// so all targets make progress even when one is slow.
func (t *Tester) buildRoundRobinQueue(subProviders []string) []task {
	var queue []task
	for i := range t.prompts {
		for _, name := range subProviders {
			queue = append(queue, task{subProvider: name, prompt: t.prompts[i]})
		}
	}
	return queue
}

// runPool executes the queue on a bounded worker pool and collects
// per-target results. Dispatch and collection both happen on the
// calling goroutine, which is the only one touching shared state;
// workers just execute tasks. Once a sub-provider fails, its
// undispatched tasks are discarded at scheduling time.
func (t *Tester) runPool(ctx context.Context, subProviders []string, fanOut bool) map[string]*TargetResult {
	results := make(map[string]*TargetResult, len(subProviders))
	failed := make(map[string]bool, len(subProviders))
	for _, name := range subProviders {
		results[name] = &TargetResult{SubProvider: name}
	}

	queue := t.buildRoundRobinQueue(subProviders)
	next := 0

	// The buffer matches the pool size, so a send never blocks while
	// in-flight work is below capacity.
	tasks := make(chan task, t.workers)
	outcomes := make(chan taskOutcome)
	defer close(tasks)

	for i := 0; i < t.workers; i++ {
		go func() {
			for tk := range tasks {
				outcomes <- taskOutcome{
					subProvider: tk.subProvider,
					check:       t.runCheck(ctx, tk.subProvider, tk.prompt, fanOut),
				}
			}
		}()
	}

	inFlight := 0
	dispatch := func() {
		for inFlight < t.workers && next < len(queue) {
			tk := queue[next]
			next++
			if failed[tk.subProvider] {
				continue
			}
			tasks <- tk
			inFlight++
		}
	}

	dispatch()
	for inFlight > 0 {
		outcome := <-outcomes
		inFlight--

		target := results[outcome.subProvider]
		target.Checks = append(target.Checks, outcome.check)
		if !outcome.check.Passed {
			failed[outcome.subProvider] = true
			t.logCheck(outcome, false)
		} else {
			t.logCheck(outcome, true)
		}
		dispatch()
	}

	for _, name := range subProviders {
		target := results[name]
		// A target passes only when it never failed and completed the
		// whole suite; early-stopped targets fail by construction.
		target.Passed = !failed[name] && len(target.Checks) == len(t.prompts)
	}
	return results
}

func (t *Tester) logCheck(outcome taskOutcome, passed bool) {
	keysAndValues := []any{"test", outcome.check.PromptID}
	if outcome.subProvider != "" {
		keysAndValues = append(keysAndValues, "sub_provider", outcome.subProvider)
	}
	if passed {
		if t.verbose {
			t.logger.Info("check passed", keysAndValues...)
		} else {
			t.logger.Debug("check passed", keysAndValues...)
		}
		return
	}
	t.logger.Warn("check failed", append(keysAndValues, "error", outcome.check.Err)...)
}

// runCheck executes one prompt against the target and judges the
// response. The returned CheckResult carries the first failed
// criterion.
func (t *Tester) runCheck(ctx context.Context, subProvider string, prompt Prompt, fanOut bool) CheckResult {
	result := CheckResult{PromptID: prompt.ID}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			result.Err = err.Error()
			return result
		}
	}

	req := &llm.Request{
		Messages:   []llm.Message{llm.NewUserMessage(prompt.Text)},
		Model:      t.targetModel,
		Timeout:    llm.NewTimeout(targetTimeout),
		MaxRetries: llm.Ptr(targetMaxRetries),
	}
	if fanOut && subProvider != "" {
		req.AllowList = []string{subProvider}
	}
	if t.overrides != nil && t.overrides.Reasoning != nil {
		req.Reasoning = t.overrides.Reasoning
	}

	resp := retry.Request(ctx, t.target, req)
	if !resp.Success {
		result.Err = resp.Error.Message
		return result
	}

	response := resp.Response
	switch response.FinishReason {
	case "content_filter", "error":
		result.Err = fmt.Sprintf("Response stopped due to: %s", response.FinishReason)
		return result
	}

	if t.overrides != nil && t.overrides.Reasoning != nil {
		thinking := response.HasThinking()
		if t.overrides.Reasoning.Enabled && !thinking {
			result.Err = "Reasoning expected but no thinking content was returned"
			return result
		}
		if !t.overrides.Reasoning.Enabled && thinking {
			result.Err = "Reasoning not expected but thinking content was returned"
			return result
		}
	}

	if response.Content == "" {
		result.Err = "Empty response"
		return result
	}

	if coherent, errMsg := t.judgeCoherency(ctx, prompt.Text, response.Content); !coherent {
		result.Err = errMsg
		return result
	}

	result.Passed = true
	return result
}
