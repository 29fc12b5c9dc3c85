package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/fmuoria/resume-analyzer/internal/llm"
)

const (
	// EnvPrefix prefixes every environment override, e.g. RESUME_LLM_API_KEY
	EnvPrefix = "RESUME"
	// DefaultConfigName is looked up in the working directory when no file is given
	DefaultConfigName = "resume-analyzer"
)

var providerKinds = []llm.Kind{llm.KindOpenAI, llm.KindGemini, llm.KindQwen, llm.KindVertex}

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Vertex   VertexConfig   `mapstructure:"vertex"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	BodyLimit    int    `mapstructure:"body-limit" validate:"gt=0"`
	AllowOrigins string `mapstructure:"allow-origins"`
}

type LLMConfig struct {
	Provider  string            `mapstructure:"provider" validate:"oneof=openai gemini qwen vertex"`
	APIKey    string            `mapstructure:"api-key"`
	Timeout   time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	Models    map[string]string `mapstructure:"models"`
	Endpoints map[string]string `mapstructure:"endpoints"`
}

type VertexConfig struct {
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
}

// GmailConfig points at the OAuth client credentials and the stored token
type GmailConfig struct {
	Credentials string `mapstructure:"credentials"`
	Token       string `mapstructure:"token"`
}

type AnalysisConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=32"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every key with its default value. Keys must be known
// to viper for environment overrides to reach Load.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body-limit", 50<<20)
	v.SetDefault("server.allow-origins", "*")

	v.SetDefault("llm.provider", string(llm.KindOpenAI))
	v.SetDefault("llm.api-key", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	for _, kind := range providerKinds {
		v.SetDefault("llm.models."+string(kind), "")
		v.SetDefault("llm.endpoints."+string(kind), "")
	}

	v.SetDefault("vertex.project", "")
	v.SetDefault("vertex.location", "us-central1")

	v.SetDefault("gmail.credentials", "credentials.json")
	v.SetDefault("gmail.token", "token.json")

	v.SetDefault("analysis.concurrency", 4)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads configuration in increasing precedence: defaults, the config
// file, .env, RESUME_* environment variables and flags already bound to v.
// An empty configFile looks for resume-analyzer.{yaml,json,...} in the
// working directory and tolerates its absence.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode maps the merged settings onto Config. Environment values arrive as
// strings, so input is weakly typed.
func decode(settings map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", ve[0].Namespace(), ve[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ProviderKind returns the configured default provider
func (c *Config) ProviderKind() llm.Kind {
	return llm.Kind(c.LLM.Provider)
}

// LLMSettings projects the provider related keys onto llm.Settings
func (c *Config) LLMSettings() llm.Settings {
	s := llm.Settings{
		Timeout:        c.LLM.Timeout,
		Models:         make(map[llm.Kind]string, len(c.LLM.Models)),
		Endpoints:      make(map[llm.Kind]string, len(c.LLM.Endpoints)),
		VertexProject:  c.Vertex.Project,
		VertexLocation: c.Vertex.Location,
	}

	for kind, model := range c.LLM.Models {
		if model = strings.TrimSpace(model); model != "" {
			s.Models[llm.Kind(kind)] = model
		}
	}
	for kind, endpoint := range c.LLM.Endpoints {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			s.Endpoints[llm.Kind(kind)] = endpoint
		}
	}

	return s
}
