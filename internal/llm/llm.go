package llm

import (
	"context"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// DefaultCallTimeout bounds a single gateway call when the caller does not
// configure one. A timeout surfaces as an ordinary step error, never a hang.
const DefaultCallTimeout = 2 * time.Minute

// NewProvider constructs the process-wide gateway client from the
// environment. Callers inject the result; nothing reads it from globals.
func NewProvider() Provider {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; falling back to local provider")
		return providers.NewLocalProvider()
	}
	opts := []openai.ClientOption{openai.WithAPIKey(apiKey)}
	if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
		} else {
			opts = append(opts, openai.WithHTTPTimeout(timeout))
		}
	}
	if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
		logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
		opts = append(opts, openai.WithBaseURL(endpoint))
	}
	client := openai.NewClient(opts...)
	logger.Info("llm: OpenAI provider selected")
	return providers.NewOpenAIProvider(client)
}

// ChatWithTimeout performs a chat call with a hard deadline. A zero duration
// uses DefaultCallTimeout.
func ChatWithTimeout(ctx context.Context, provider Provider, messages []Message, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return provider.Chat(callCtx, messages)
}
