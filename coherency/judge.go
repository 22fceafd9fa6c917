package coherency

import (
	"context"
	"fmt"
	"strings"

	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/retry"
)

// judgePrompt wraps a request/response pair for the judge model. The
// judge answers with a bare YES or NO.
func judgePrompt(request, response string) string {
	return fmt.Sprintf(`You are an AI assistant evaluating whether another AI's response is coherent and sensible given the user's request.

User Request:
"""
%s
"""

AI Response:
"""
%s
"""

Is the AI Response above a coherent and sensible answer to the User Request?
Consider if the response is on-topic, understandable, and not complete gibberish or a clear error/failure message.

Answer ONLY with 'YES' or 'NO'. Do not provide any explanation.
`, request, response)
}

// judgeCoherency asks the judge model whether response answers
// request coherently. Anything but a clean YES verdict fails, closed.
func (t *Tester) judgeCoherency(ctx context.Context, request, response string) (bool, string) {
	req := &llm.Request{
		Messages:   []llm.Message{llm.NewUserMessage(judgePrompt(request, response))},
		Model:      t.judgeModel,
		Timeout:    llm.NewTimeout(judgeTimeout),
		MaxRetries: llm.Ptr(judgeMaxRetries),
	}

	resp := retry.Request(ctx, t.judge, req)
	if !resp.Success {
		return false, fmt.Sprintf("judge request failed: %s", resp.Error.Message)
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Response.Content))
	switch verdict {
	case "YES":
		return true, ""
	case "NO":
		return false, "judge evaluation: incoherent response"
	default:
		return false, fmt.Sprintf("judge returned unexpected verdict %q", verdict)
	}
}
