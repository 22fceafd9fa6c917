// Command ask sends a single prompt to a provider and prints the
// response content.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/xlr8harder/llmclient"
	"github.com/xlr8harder/llmclient/llm"
	"github.com/xlr8harder/llmclient/retry"
	"github.com/xlr8harder/llmclient/slogger"
)

var (
	errorStyle = color.New(color.FgRed)
)

func fatal(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, errorStyle.Sprint(msg)+"\n", args...)
	os.Exit(1)
}

func main() {
	var (
		providerName string
		model        string
		prompt       string
		system       string
		stream       bool
		timeout      time.Duration
		retries      int
		maxTokens    int
		logLevel     string
	)
	flag.StringVar(&providerName, "provider", "openrouter", "Provider name")
	flag.StringVar(&model, "model", "", "Model identifier (required)")
	flag.StringVar(&prompt, "prompt", "", "Prompt text (required)")
	flag.StringVar(&system, "system", "", "Optional system message")
	flag.BoolVar(&stream, "stream", false, "Use aggregated streaming transport")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "Per-attempt timeout")
	flag.IntVar(&retries, "retries", llm.DefaultMaxRetries, "Max retries for retryable failures")
	flag.IntVar(&maxTokens, "max-tokens", 0, "Completion token cap (0 = provider default)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	flag.Parse()

	if model == "" || prompt == "" {
		fatal("Error: -model and -prompt are required")
	}

	// Best effort; keys may come from the real environment instead
	_ = godotenv.Load()

	provider, err := llmclient.GetProvider(providerName)
	if err != nil {
		fatal("Error: %s", err)
	}

	var messages []llm.Message
	if system != "" {
		messages = append(messages, llm.NewSystemMessage(system))
	}
	messages = append(messages, llm.NewUserMessage(prompt))

	req := &llm.Request{
		Messages:   messages,
		Model:      model,
		MaxTokens:  maxTokens,
		Timeout:    llm.NewTimeout(timeout),
		MaxRetries: llm.Ptr(retries),
	}
	if stream {
		req.Transport = llm.TransportStream
	}

	logger := slogger.New(slogger.LevelFromString(logLevel))
	ctx := slogger.WithLogger(context.Background(), logger)

	resp := retry.Request(ctx, provider, req)
	if !resp.Success {
		fatal("Request failed: %s", resp.Error.Error())
	}
	fmt.Println(resp.Response.Content)
}
