// Package config handles loading and validating the voicedesk configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the voicedesk daemon.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Answer  AnswerConfig  `mapstructure:"answer"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP and health check server settings.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	HealthPort int `mapstructure:"health_port"`
}

// StorageConfig locates the flat-file tables.
type StorageConfig struct {
	// DataDir is the directory holding the table files.
	DataDir string `mapstructure:"data_dir"`

	PromptsFile      string `mapstructure:"prompts_file"`
	AccountsFile     string `mapstructure:"accounts_file"`
	EmailConfigsFile string `mapstructure:"email_configs_file"`
}

// PromptsPath returns the full path of the prompt history table.
func (s StorageConfig) PromptsPath() string { return filepath.Join(s.DataDir, s.PromptsFile) }

// AccountsPath returns the full path of the account table.
func (s StorageConfig) AccountsPath() string { return filepath.Join(s.DataDir, s.AccountsFile) }

// EmailConfigsPath returns the full path of the email configuration table.
func (s StorageConfig) EmailConfigsPath() string {
	return filepath.Join(s.DataDir, s.EmailConfigsFile)
}

// AnswerConfig selects and configures the speech/LLM backend.
type AnswerConfig struct {
	Backend string       `mapstructure:"backend"` // "openai" or "local"
	OpenAI  OpenAIConfig `mapstructure:"openai"`
	Local   LocalConfig  `mapstructure:"local"`

	// TimeoutSeconds bounds each transcription or answer call.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	TranscriptionModel string `mapstructure:"transcription_model"`
	CompletionModel    string `mapstructure:"completion_model"`
}

// LocalConfig holds self-hosted model settings.
type LocalConfig struct {
	WhisperEndpoint string `mapstructure:"whisper_endpoint"`
	WhisperType     string `mapstructure:"whisper_type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	LLMEndpoint     string `mapstructure:"llm_endpoint"`
	LLMModel        string `mapstructure:"llm_model"` // Ollama model name (e.g., "llama3.2:1b")
	VADFilter       bool   `mapstructure:"vad_filter"`
	Language        string `mapstructure:"language"` // ISO-639-1 default language (e.g., "en", "fr")
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./voicedesk.yaml, ./configs/voicedesk.yaml, /etc/voicedesk/voicedesk.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.prompts_file", "prompts.tbl")
	v.SetDefault("storage.accounts_file", "accounts.tbl")
	v.SetDefault("storage.email_configs_file", "email_configs.tbl")
	v.SetDefault("answer.backend", "openai")
	v.SetDefault("answer.timeout_seconds", 30)
	v.SetDefault("answer.openai.transcription_model", "gpt-4o-transcribe")
	v.SetDefault("answer.openai.completion_model", "gpt-4o")
	v.SetDefault("answer.local.whisper_endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("answer.local.whisper_type", "openai")
	v.SetDefault("answer.local.llm_endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("answer.local.llm_model", "llama3")
	v.SetDefault("answer.local.vad_filter", false)
	v.SetDefault("answer.local.language", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voicedesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voicedesk")
	}

	// Environment variables: VOICEDESK_SERVER_PORT, VOICEDESK_ANSWER_BACKEND, etc.
	v.SetEnvPrefix("VOICEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Answer.OpenAI.APIKey = resolveEnvRef(cfg.Answer.OpenAI.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
