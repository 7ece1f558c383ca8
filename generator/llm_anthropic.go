package generator

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

// AnthropicLLM implements LLMClient using the official Anthropic SDK.
type AnthropicLLM struct {
	client anthropic.Client
}

func NewAnthropicLLM(apiKey string) (*AnthropicLLM, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key missing")
	}
	return &AnthropicLLM{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

func (a *AnthropicLLM) Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   llmMaxTokens,
		Temperature: anthropic.Float(llmTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "anthropic message")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: empty response")
	}
	return sb.String(), nil
}
