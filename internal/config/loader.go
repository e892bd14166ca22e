package config

import (
	"os"
	"strings"

	"audio-interviewer/internal/errors"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxQuestions   = 5
	DefaultMaxAudioBytes  = 5 * 1024 * 1024
	DefaultFirstQuestion  = "Tell me about yourself."
	DefaultNextQuestion   = "What would you like to share next?"
	defaultAudioExtension = "webm"
	defaultContentType    = "audio/webm"
)

// Default returns the built-in interview policy.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the interview policy from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to read %s", filename))
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse %s", filename))
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Interview.MaxQuestions == 0 {
		config.Interview.MaxQuestions = DefaultMaxQuestions
	}
	if config.Audio.MaxBytes == 0 {
		config.Audio.MaxBytes = DefaultMaxAudioBytes
	}
	config.Audio.Extension = strings.TrimPrefix(strings.TrimSpace(config.Audio.Extension), ".")
	if config.Audio.Extension == "" {
		config.Audio.Extension = defaultAudioExtension
	}
	if config.Audio.ContentType == "" {
		config.Audio.ContentType = defaultContentType
	}
	if strings.TrimSpace(config.Fallbacks.FirstQuestion) == "" {
		config.Fallbacks.FirstQuestion = DefaultFirstQuestion
	}
	if strings.TrimSpace(config.Fallbacks.NextQuestion) == "" {
		config.Fallbacks.NextQuestion = DefaultNextQuestion
	}
}

// validateConfig rejects policies the engine cannot honour
func validateConfig(config *Config) error {
	if config.Interview.MaxQuestions < 1 {
		return errors.ConfigInvalid("interview.max_questions must be at least 1")
	}

	if config.Audio.MaxBytes < 1 {
		return errors.ConfigInvalid("audio.max_bytes must be positive")
	}

	if strings.ContainsAny(config.Audio.Extension, `/\`) {
		return errors.ConfigInvalid("audio.extension must not contain path separators")
	}

	if !strings.Contains(config.Audio.ContentType, "/") {
		return errors.ConfigInvalid("audio.content_type must be a MIME type")
	}

	return nil
}
