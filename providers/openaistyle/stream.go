package openaistyle

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/xlr8harder/llmclient/llm"
)

// accumulator reduces stream events into final response state.
// Content deltas concatenate in arrival order; the last non-empty
// finish reason and the last non-nil usage snapshot win.
type accumulator struct {
	id           string
	created      int64
	model        string
	subProvider  string
	content      []byte
	reasoning    []byte
	finishReason string
	usage        *llm.Usage
}

func (a *accumulator) apply(event *chatResponse) {
	if event.ID != "" {
		a.id = event.ID
	}
	if event.Created != 0 {
		a.created = event.Created
	}
	if event.Model != "" {
		a.model = event.Model
	}
	if event.Provider != "" {
		a.subProvider = event.Provider
	}
	if event.Usage != nil {
		a.usage = event.Usage
	}
	if len(event.Choices) == 0 {
		return
	}
	c := event.Choices[0]
	if c.Delta != nil {
		a.content = append(a.content, c.Delta.Content...)
		a.reasoning = append(a.reasoning, c.Delta.Reasoning...)
	} else {
		// Some servers stream whole messages rather than deltas
		a.content = append(a.content, c.Message.Content...)
		a.reasoning = append(a.reasoning, c.Message.Reasoning...)
	}
	if c.FinishReason != "" {
		a.finishReason = c.FinishReason
	}
}

func (a *accumulator) response(provider string) *llm.StandardizedResponse {
	finishReason := a.finishReason
	if finishReason == "" {
		finishReason = "stop"
	}
	return &llm.StandardizedResponse{
		ID:           a.id,
		Created:      a.created,
		Model:        a.model,
		Provider:     provider,
		SubProvider:  a.subProvider,
		Content:      string(a.content),
		Reasoning:    string(a.reasoning),
		FinishReason: finishReason,
		Usage:        a.usage,
	}
}

// aggregateStream consumes one SSE connection and reduces it to a
// single response. The connection belongs to this attempt alone; a
// retried attempt opens a fresh one.
func (p *Provider) aggregateStream(body io.ReadCloser) *llm.Response {
	events := llm.NewServerSentEventsReader[chatResponse](body)
	defer events.Close()

	// The idle timer bounds the gap between consecutive events,
	// independent of the per-attempt deadline. Firing closes the body
	// to unblock the read.
	var idleExpired atomic.Bool
	var idleTimer *time.Timer
	if p.idleTimeout > 0 {
		idleTimer = time.AfterFunc(p.idleTimeout, func() {
			idleExpired.Store(true)
			body.Close()
		})
		defer idleTimer.Stop()
	}

	var state accumulator
	for {
		event, ok := events.Next()
		if !ok {
			break
		}
		if idleTimer != nil {
			idleTimer.Reset(p.idleTimeout)
		}
		if event.hasError() {
			return llm.NewFailure(llm.NewError(llm.ErrorKindAPIError, event.errorMessage()), nil)
		}
		if len(event.Choices) > 0 {
			if info := contentFilterError(&event.Choices[0]); info != nil {
				return llm.NewFailure(info, nil)
			}
		}
		state.apply(&event)
	}

	if idleExpired.Load() {
		return llm.NewFailure(llm.NewError(llm.ErrorKindTimeout,
			fmt.Sprintf("no stream activity within %s", p.idleTimeout)), nil)
	}
	if err := events.Err(); err != nil {
		return llm.NewFailure(llm.Classify(err), nil)
	}
	if !events.Terminated() {
		// The connection closed cleanly but the server never sent the
		// terminator; the partial result is ambiguous.
		return llm.NewFailure(llm.NewError(llm.ErrorKindUnknown,
			"stream ended without terminator"), nil)
	}
	if len(state.content) == 0 {
		return llm.NewFailure(llm.NewError(llm.ErrorKindContentFilter,
			"Stream completed with no content"), nil)
	}
	return llm.NewSuccess(state.response(p.name), nil)
}
