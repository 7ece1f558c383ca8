// Package config loads the application configuration from a JSON file with
// environment-variable fallbacks for credentials.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config holds server, storage and provider settings. Credentials left
// empty in the file are taken from the environment (.env is loaded by main).
type Config struct {
	ServerAddr string `json:"server_addr,omitempty"`
	DBPath     string `json:"db_path,omitempty"`
	// BlogID is the Naver blog crawled for reference posts.
	BlogID string `json:"blog_id,omitempty"`

	OpenAI    *ProviderConfig `json:"openai,omitempty"`
	Anthropic *ProviderConfig `json:"anthropic,omitempty"`
	Gemini    *ProviderConfig `json:"gemini,omitempty"`

	TavilyAPIKey string `json:"tavily_api_key,omitempty"`
}

// ProviderConfig configures one LLM provider. BaseURL applies only to
// OpenAI-compatible endpoints.
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// Load reads the JSON config file and applies env fallbacks. A missing file
// is not an error: the result is built from the environment alone.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// env-only config
	case err != nil:
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && (c.OpenAI == nil || c.OpenAI.APIKey == "") {
		if c.OpenAI == nil {
			c.OpenAI = &ProviderConfig{}
		}
		c.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && (c.Anthropic == nil || c.Anthropic.APIKey == "") {
		if c.Anthropic == nil {
			c.Anthropic = &ProviderConfig{}
		}
		c.Anthropic.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && (c.Gemini == nil || c.Gemini.APIKey == "") {
		if c.Gemini == nil {
			c.Gemini = &ProviderConfig{}
		}
		c.Gemini.APIKey = key
	}
	if c.TavilyAPIKey == "" {
		c.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
}

// GeminiAPIKey returns the configured Gemini credential, or "".
func (c Config) GeminiAPIKey() string {
	if c.Gemini == nil {
		return ""
	}
	return c.Gemini.APIKey
}
