// Package config loads the agent runner's configuration tree from YAML,
// overridable by environment variables: a plain struct tree plus a
// loader, no framework.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration tree. Every field has a sane zero-value
// default applied by Load.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Memory  MemoryConfig  `yaml:"memory"`
	Tools   ToolsConfig   `yaml:"tools"`
	Events  EventsConfig  `yaml:"events"`
	Server  ServerConfig  `yaml:"server"`
	Verbose bool          `yaml:"verbose"`
}

// LLMConfig selects the active provider and its credentials/model
// parameters.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "anthropic" | "openai" | "google" | "bedrock" | "azure"
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	BaseURL     string        `yaml:"base_url"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`

	// Credentials are read from provider-specific environment variables
	// rather than stored in the YAML tree; Load populates this from
	// the environment after parsing the file.
	APIKey string `yaml:"-"`

	// Azure-only OAuth fields.
	AzureTenantID     string `yaml:"azure_tenant_id"`
	AzureClientID     string `yaml:"azure_client_id"`
	AzureClientSecret string `yaml:"-"`
	AzureEndpoint     string `yaml:"azure_endpoint"`
	AzureAPIVersion   string `yaml:"azure_api_version"`

	// Bedrock-only AWS fields.
	BedrockRegion string `yaml:"bedrock_region"`
}

// MemoryConfig configures short-term capacity and the long-term backend.
type MemoryConfig struct {
	ShortTermCapacity int    `yaml:"short_term_capacity"`
	LongTermBackend   string `yaml:"long_term_backend"` // "" | "json" | "sqlite"
	JSONPath          string `yaml:"json_path"`
	SQLiteDSN         string `yaml:"sqlite_dsn"`
}

// ToolsConfig configures tool execution deadlines and the blob store
// backing blob_storage_path, mirroring memory's dual local/durable
// backend split: "local" (the default, BlobStoragePath on disk) or "s3"
// (an S3-compatible bucket, for a store shared across runner instances).
type ToolsConfig struct {
	BlobStoragePath string        `yaml:"blob_storage_path"`
	BlobBackend     string        `yaml:"blob_backend"` // "" | "local" | "s3"
	Timeout         time.Duration `yaml:"timeout"`
	PythonPath      string        `yaml:"python_path"`
	PipPath         string        `yaml:"pip_path"`

	S3Bucket          string `yaml:"s3_bucket"`
	S3Region          string `yaml:"s3_region"`
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3Prefix          string `yaml:"s3_prefix"`
	S3UsePathStyle    bool   `yaml:"s3_use_path_style"`
	S3AccessKeyID     string `yaml:"-"`
	S3SecretAccessKey string `yaml:"-"`
}

// EventsConfig configures the Event Bus's bounded capacity.
type EventsConfig struct {
	Capacity int `yaml:"capacity"`
}

// ServerConfig configures the HTTP/SSE front-end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config populated with the runner's defaults:
// 10-message short-term ring, 1000-event bus, 30s tool timeout,
// temperature 0.7, 1024 max tokens.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Temperature: 0.7,
			MaxTokens:   1024,
			MaxRetries:  3,
			RetryDelay:  500 * time.Millisecond,
		},
		Memory: MemoryConfig{
			ShortTermCapacity: 10,
		},
		Tools: ToolsConfig{
			BlobStoragePath: "./blob_storage",
			BlobBackend:     "local",
			Timeout:         30 * time.Second,
			PythonPath:      "python3",
			PipPath:         "pip3",
		},
		Events: EventsConfig{
			Capacity: 1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads YAML from path (if non-empty and present) over Default(),
// then applies environment-variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			if err := decodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTRUNNER_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("AGENTRUNNER_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AGENTRUNNER_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = f
		}
	}
	if v := os.Getenv("AGENTRUNNER_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("AGENTRUNNER_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}
	if v := os.Getenv("AGENTRUNNER_BLOB_STORAGE_PATH"); v != "" {
		cfg.Tools.BlobStoragePath = v
	}
	if v := os.Getenv("AGENTRUNNER_BLOB_BACKEND"); v != "" {
		cfg.Tools.BlobBackend = v
	}
	if v := os.Getenv("AGENTRUNNER_S3_BUCKET"); v != "" {
		cfg.Tools.S3Bucket = v
	}
	if v := os.Getenv("AGENTRUNNER_S3_REGION"); v != "" {
		cfg.Tools.S3Region = v
	}
	if v := os.Getenv("AGENTRUNNER_S3_ENDPOINT"); v != "" {
		cfg.Tools.S3Endpoint = v
	}
	if v := os.Getenv("AGENTRUNNER_S3_PREFIX"); v != "" {
		cfg.Tools.S3Prefix = v
	}
	if v := os.Getenv("AGENTRUNNER_S3_USE_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tools.S3UsePathStyle = b
		}
	}
	cfg.Tools.S3AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Tools.S3SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	if v := os.Getenv("AGENTRUNNER_SHORT_TERM_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Memory.ShortTermCapacity = n
		}
	}
	if v := os.Getenv("AGENTRUNNER_LONG_TERM_BACKEND"); v != "" {
		cfg.Memory.LongTermBackend = v
	}
	if v := os.Getenv("AGENTRUNNER_JSON_STORE_PATH"); v != "" {
		cfg.Memory.JSONPath = v
	}
	if v := os.Getenv("AGENTRUNNER_SQLITE_DSN"); v != "" {
		cfg.Memory.SQLiteDSN = v
	}
	if v := os.Getenv("AGENTRUNNER_EVENT_BUS_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Events.Capacity = n
		}
	}
	if v := os.Getenv("AGENTRUNNER_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	// Provider credentials are always sourced from the environment, never
	// from the YAML tree.
	switch strings.ToLower(cfg.LLM.Provider) {
	case "anthropic":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "google", "gemini":
		cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
	case "bedrock":
		cfg.LLM.BedrockRegion = firstNonEmpty(cfg.LLM.BedrockRegion, os.Getenv("AWS_REGION"))
	case "azure":
		cfg.LLM.AzureClientSecret = os.Getenv("AZURE_CLIENT_SECRET")
		cfg.LLM.APIKey = os.Getenv("AZURE_API_KEY")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
