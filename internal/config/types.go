package config

// Config is the interview policy loaded from YAML.
type Config struct {
	Interview InterviewConfig `yaml:"interview"`
	Audio     AudioConfig     `yaml:"audio"`
	Fallbacks FallbackConfig  `yaml:"fallbacks"`
}

// InterviewConfig bounds a session.
type InterviewConfig struct {
	MaxQuestions int `yaml:"max_questions"`
}

// AudioConfig describes accepted answer recordings.
type AudioConfig struct {
	MaxBytes    int    `yaml:"max_bytes"`
	Extension   string `yaml:"extension"`
	ContentType string `yaml:"content_type"`
}

// FallbackConfig holds the questions used when the generator is unavailable.
type FallbackConfig struct {
	FirstQuestion string `yaml:"first_question"`
	NextQuestion  string `yaml:"next_question"`
}

func (c *Config) GetMaxQuestions() int {
	return c.Interview.MaxQuestions
}

func (c *Config) GetMaxAudioBytes() int {
	return c.Audio.MaxBytes
}
