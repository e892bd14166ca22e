package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"audio-interviewer/internal/errors"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Blob drivers. BlobStore keeps audio in the session store backend.
const (
	BlobStore      = "store"
	BlobFilesystem = "filesystem"
	BlobAzure      = "azure"
)

// AI backends
const (
	AIFastAPI = "fastapi"
	AIOpenAI  = "openai"
)

type AppConfig struct {
	Server    ServerConfig
	Store     StoreConfig
	Blob      BlobConfig
	AI        AIConfig
	OpenAI    OpenAIConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Driver        string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
}

type BlobConfig struct {
	Driver                string
	Dir                   string
	AzureConnectionString string
	AzureAccountURL       string
	AzureContainer        string
}

type AIConfig struct {
	Backend        string
	FastAPIBaseURL string
	Timeout        time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

type TelemetryConfig struct {
	Enabled    bool
	TraceFile  string
	MetricFile string
}

// LoadDotEnv loads variables from .env files. Missing files are skipped and
// variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to load %s", file))
		}
	}
	return nil
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			MongoURI:      getEnv("MONGO_URI", ""),
			MongoDatabase: getEnv("MONGO_DATABASE", "audio_interviewer"),
		},
		Blob: BlobConfig{
			Driver:                strings.ToLower(getEnv("BLOB_DRIVER", BlobStore)),
			Dir:                   getEnv("AUDIO_DIR", "data/audio"),
			AzureConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
			AzureAccountURL:       getEnv("AZURE_STORAGE_ACCOUNT_URL", ""),
			AzureContainer:        getEnv("AZURE_STORAGE_CONTAINER", "interview-audio"),
		},
		AI: AIConfig{
			Backend:        strings.ToLower(getEnv("AI_BACKEND", AIFastAPI)),
			FastAPIBaseURL: strings.TrimRight(getEnv("FASTAPI_BASE_URL", "http://localhost:8000/api"), "/"),
			Timeout:        getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 2000),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.3),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:    getEnvAsBool("TELEMETRY_ENABLED", false),
			TraceFile:  getEnv("TELEMETRY_TRACE_FILE", "logs/traces.jsonl"),
			MetricFile: getEnv("TELEMETRY_METRIC_FILE", "logs/metrics.jsonl"),
		},
	}
}

// Validate checks that the selected drivers have what they need
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ConfigInvalid("SERVER_PORT must be between 1 and 65535")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the " + c.Store.Driver + " store")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.ConfigInvalid("MONGO_URI is required for the mongo store")
		}
	default:
		return errors.ConfigInvalid("unknown STORE_DRIVER: " + c.Store.Driver)
	}

	switch c.Blob.Driver {
	case BlobStore:
	case BlobFilesystem:
		if c.Blob.Dir == "" {
			return errors.ConfigInvalid("AUDIO_DIR is required for the filesystem blob driver")
		}
	case BlobAzure:
		if c.Blob.AzureConnectionString == "" && c.Blob.AzureAccountURL == "" {
			return errors.ConfigInvalid("AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_ACCOUNT_URL is required")
		}
	default:
		return errors.ConfigInvalid("unknown BLOB_DRIVER: " + c.Blob.Driver)
	}

	switch c.AI.Backend {
	case AIFastAPI:
		if c.AI.FastAPIBaseURL == "" {
			return errors.ConfigInvalid("FASTAPI_BASE_URL is required for the fastapi backend")
		}
	case AIOpenAI:
		if err := c.OpenAI.ValidateConfig(); err != nil {
			return err
		}
	default:
		return errors.ConfigInvalid("unknown AI_BACKEND: " + c.AI.Backend)
	}

	if c.AI.Timeout <= 0 {
		return errors.ConfigInvalid("AI_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
