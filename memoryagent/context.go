package memoryagent

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultSystemPrompt is the chat prompt used when none is configured. The
// {user_info} placeholder receives the formatted memories block and {time}
// the current system time.
const DefaultSystemPrompt = `You are a helpful and friendly chatbot. Get to know the user! ` +
	`Ask questions! Be spontaneous!
{user_info}

System Time: {time}`

// Context carries per-conversation configuration for the memory agent.
type Context struct {
	// UserID scopes what memories are stored and retrieved.
	UserID string

	// Model selects the chat model, optionally prefixed with a provider,
	// e.g. "anthropic:claude-3-5-sonnet" or plain "gpt-4o".
	Model string

	// SystemPrompt overrides DefaultSystemPrompt. It must contain the
	// {user_info} and {time} placeholders.
	SystemPrompt string
}

func (c Context) systemPrompt() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return DefaultSystemPrompt
}

// SplitModelAndProvider splits a "provider:model" identifier. A bare model
// name yields an empty provider.
func SplitModelAndProvider(fullySpecified string) (provider, model string) {
	if before, after, found := strings.Cut(fullySpecified, ":"); found {
		return before, after
	}
	return "", fullySpecified
}

// NewModelFromContext resolves Context.Model to a chat model. An empty
// provider defaults to openai; API keys come from the provider's usual
// environment variables.
func NewModelFromContext(rc Context) (llms.Model, error) {
	if rc.Model == "" {
		return nil, fmt.Errorf("memoryagent: Context.Model is required to resolve a model")
	}
	provider, model := SplitModelAndProvider(rc.Model)
	switch provider {
	case "", "openai":
		return openai.New(openai.WithModel(model))
	case "anthropic":
		return anthropic.New(anthropic.WithModel(model))
	default:
		return nil, fmt.Errorf("memoryagent: unsupported model provider %q", provider)
	}
}
