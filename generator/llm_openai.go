package generator

import (
	"context"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat
// completions). A base URL makes it serve any OpenAI-compatible endpoint.
type OpenAILLM struct {
	opts []option.RequestOption
}

func NewOpenAILLM(apiKey, baseURL string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAILLM{opts: opts}, nil
}

func (o *OpenAILLM) Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	client := openai.NewClient(o.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(llmTemperature),
		MaxTokens:   openai.Int(llmMaxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
