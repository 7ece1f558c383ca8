package generator

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// LLMClient abstracts the text-generation call so providers can be swapped
// or mocked. model is a display name or "provider/model-id" string.
type LLMClient interface {
	Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Generation defaults, matching the upstream service limits we target.
const (
	llmTemperature = 0.7
	llmMaxTokens   = 4000
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// ModelRef resolves a display name to a concrete provider call.
type ModelRef struct {
	Provider string
	ModelID  string
}

// modelRegistry maps UI display names to provider models.
var modelRegistry = map[string]ModelRef{
	"Claude Sonnet": {ProviderAnthropic, "claude-sonnet-4-20250514"},
	"Claude Haiku":  {ProviderAnthropic, "claude-haiku-4-20250414"},
	"GPT-4o":        {ProviderOpenAI, "gpt-4o"},
	"GPT-4o Mini":   {ProviderOpenAI, "gpt-4o-mini"},
	"Gemini Pro":    {ProviderGemini, "gemini-2.5-pro"},
	"Gemini Flash":  {ProviderGemini, "gemini-2.5-flash"},
}

// ListModelNames returns the display names available for selection, sorted
// for stable API output.
func ListModelNames() []string {
	names := make([]string, 0, len(modelRegistry))
	for name := range modelRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveModel turns a display name or an explicit "provider/model-id"
// string into a ModelRef.
func ResolveModel(name string) (ModelRef, error) {
	if ref, ok := modelRegistry[name]; ok {
		return ref, nil
	}
	if provider, modelID, ok := strings.Cut(name, "/"); ok && provider != "" && modelID != "" {
		return ModelRef{Provider: provider, ModelID: modelID}, nil
	}
	return ModelRef{}, errors.Errorf("unknown model %q (available: %s)", name, strings.Join(ListModelNames(), ", "))
}

// LLMRouter dispatches Generate calls to the provider backing the requested
// model. Providers with no configured credentials are simply absent.
type LLMRouter struct {
	providers map[string]LLMClient
}

func NewLLMRouter() *LLMRouter {
	return &LLMRouter{providers: make(map[string]LLMClient)}
}

// WithProvider registers a backend client for a provider key.
func (r *LLMRouter) WithProvider(provider string, client LLMClient) *LLMRouter {
	r.providers[provider] = client
	return r
}

// Providers returns the configured provider keys, sorted.
func (r *LLMRouter) Providers() []string {
	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *LLMRouter) Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	ref, err := ResolveModel(model)
	if err != nil {
		return "", err
	}
	client, ok := r.providers[ref.Provider]
	if !ok {
		return "", errors.Errorf("provider %s not configured (set its API key)", ref.Provider)
	}
	return client.Generate(ctx, ref.ModelID, systemPrompt, userPrompt)
}
