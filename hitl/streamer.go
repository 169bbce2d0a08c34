// Package hitl implements human-in-the-loop chat sessions: model output is
// streamed token by token, the user can interject mid-stream, and the session
// graph folds the interjection into the context before regenerating.
package hitl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// TokenStreamer generates a chat completion token by token. onToken is called
// for each token as it arrives; returning an error from onToken aborts the
// stream and surfaces that error.
type TokenStreamer interface {
	Stream(ctx context.Context, messages []llms.MessageContent, onToken func(token string) error) error
}

// OpenAIStreamer streams chat completions from an OpenAI-compatible API.
type OpenAIStreamer struct {
	client *openai.Client
	model  string
}

// NewOpenAIStreamer creates a streamer for the given model. baseURL may be
// empty for the default OpenAI endpoint.
func NewOpenAIStreamer(apiKey, baseURL, model string) *OpenAIStreamer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIStreamer{client: openai.NewClientWithConfig(config), model: model}
}

func (s *OpenAIStreamer) Stream(ctx context.Context, messages []llms.MessageContent, onToken func(token string) error) error {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream receive failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		if err := onToken(token); err != nil {
			return err
		}
	}
}

func toOpenAIMessages(messages []llms.MessageContent) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		var sb strings.Builder
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
			}
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(msg.Role),
			Content: sb.String(),
		})
	}
	return out
}

func toOpenAIRole(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeSystem:
		return openai.ChatMessageRoleSystem
	case llms.ChatMessageTypeAI:
		return openai.ChatMessageRoleAssistant
	case llms.ChatMessageTypeTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}
