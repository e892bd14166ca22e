package config

import "audio-interviewer/internal/errors"

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ValidateConfig checks the settings needed to call the chat API
func (c *OpenAIConfig) ValidateConfig() error {
	if c.APIKey == "" {
		return errors.ConfigInvalid("OPENAI_API_KEY is required")
	}

	if c.MaxTokens <= 0 {
		return errors.ConfigInvalid("OPENAI_MAX_TOKENS must be positive")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.ConfigInvalid("OPENAI_TEMPERATURE must be between 0 and 2")
	}

	return nil
}
