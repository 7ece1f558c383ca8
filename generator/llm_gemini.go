package generator

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// GeminiLLM implements LLMClient using the Google GenAI SDK (Gemini API
// backend).
type GeminiLLM struct {
	client *genai.Client
}

func NewGeminiLLM(ctx context.Context, apiKey string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key missing")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return &GeminiLLM{client: client}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(llmTemperature)),
		MaxOutputTokens:   llmMaxTokens,
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(userPrompt), config)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate")
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
