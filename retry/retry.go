// Package retry drives a request through a provider until it
// succeeds, fails permanently, or exhausts its retry budget. The
// error classifier is the sole authority on whether a failure is
// retryable; this package only reads that verdict.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/slogger"
)

// Backoff defaults. The delay before retry n (1-based) is
// min(BaseDelay * 2^(n-1), MaxDelay) scaled by a random factor in
// [1-Jitter, 1+Jitter].
const (
	DefaultBaseDelay = 1 * time.Second
	DefaultMaxDelay  = 30 * time.Second
	DefaultJitter    = 0.2
)

type settings struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	jitter    float64
	rng       func() float64
}

// Option adjusts the backoff policy of a single Request call.
type Option func(*settings)

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(s *settings) { s.baseDelay = d }
}

// WithMaxDelay caps the exponential growth of the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(s *settings) { s.maxDelay = d }
}

// WithJitter sets the random spread applied to each delay, as a
// fraction of the computed delay. Zero disables jitter.
func WithJitter(fraction float64) Option {
	return func(s *settings) { s.jitter = fraction }
}

// attemptState carries the retry loop state between attempts.
type attemptState struct {
	attempt int
	last    *llm.Response
}

// Request executes req against provider, retrying retryable failures
// with exponential backoff until the request's retry budget runs out.
// Validation failures and permanent errors return immediately. When
// the budget is exhausted the final attempt's Response is returned
// unchanged, so the caller sees the real failure rather than a
// wrapper. Cancelling ctx aborts between attempts and during the
// backoff sleep.
func Request(ctx context.Context, provider llm.Provider, req *llm.Request, opts ...Option) *llm.Response {
	s := settings{
		baseDelay: DefaultBaseDelay,
		maxDelay:  DefaultMaxDelay,
		jitter:    DefaultJitter,
		rng:       rand.Float64,
	}
	for _, opt := range opts {
		opt(&s)
	}

	if info := req.Validate(); info != nil {
		return llm.NewFailure(info, nil)
	}

	logger := slogger.Ctx(ctx)
	budget := req.RetryBudget()
	state := attemptState{}

	for {
		if info := ctxFailure(ctx); info != nil {
			return llm.NewFailure(info, nil)
		}

		state.last = provider.ChatCompletion(ctx, req)
		if state.last.Success || !state.last.Error.Retryable {
			return state.last
		}
		if state.attempt >= budget {
			return state.last
		}

		// A timeout verdict may stem from the caller's own deadline;
		// re-check before paying for another attempt.
		if info := ctxFailure(ctx); info != nil {
			return llm.NewFailure(info, nil)
		}

		wait := s.delay(state.attempt)
		logger.Warn("retrying request",
			"provider", provider.Name(),
			"model", req.Model,
			"attempt", state.attempt+1,
			"max_retries", budget,
			"error", state.last.Error.Message,
			"wait", wait)

		select {
		case <-ctx.Done():
			return llm.NewFailure(llm.Classify(ctx.Err()), nil)
		case <-time.After(wait):
		}
		state.attempt++
	}
}

// delay returns the backoff before the retry following attempt n
// (0-based).
func (s *settings) delay(attempt int) time.Duration {
	d := time.Duration(float64(s.baseDelay) * math.Pow(2, float64(attempt)))
	if d > s.maxDelay {
		d = s.maxDelay
	}
	if s.jitter > 0 {
		factor := 1 + s.jitter*(2*s.rng()-1)
		d = time.Duration(float64(d) * factor)
	}
	return d
}

func ctxFailure(ctx context.Context) *llm.ErrorInfo {
	if err := ctx.Err(); err != nil {
		return llm.Classify(err)
	}
	return nil
}
