package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	ServerPort      string `yaml:"server_port"`
	FrontendURL     string `yaml:"frontend_url"`
	InferenceAPIKey string `yaml:"inference_api_key"`
	AIModel         string `yaml:"ai_model"`
	AIBaseURL       string `yaml:"ai_base_url"`
	RedisURL        string `yaml:"redis_url"`
	RabbitMQURL     string `yaml:"rabbitmq_url"`
	TokenSecret     string `yaml:"token_secret"`
	EnableHSTS      bool   `yaml:"enable_hsts"`
	ServerDebugMode bool   `yaml:"server_debug_mode"`
	WorkerDebugMode bool   `yaml:"worker_debug_mode"`
	OTELEnabled     bool   `yaml:"otel_enabled"`
	OTELEndpoint    string `yaml:"otel_endpoint"`

	// Behavioral limits (original application defaults)
	SessionTimeoutHours int `yaml:"session_timeout_hours"`
	MaxTextLength       int `yaml:"max_text_length"`
	MaxQuestionLength   int `yaml:"max_question_length"`
	MaxLogEntries       int `yaml:"max_log_entries"`
	LogDisplayLimit     int `yaml:"log_display_limit"`
	MinPasswordLength   int `yaml:"min_password_length"`
}

// Load loads configuration from environment variables, with an optional
// YAML file (CONFIG_FILE) providing base values that the environment
// overrides.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", defaultStr(cfg.ServerPort, "8080"))
	cfg.FrontendURL = getEnv("FRONTEND_URL", defaultStr(cfg.FrontendURL, "http://localhost:3000"))
	cfg.InferenceAPIKey = getEnv("INFERENCE_API_KEY", cfg.InferenceAPIKey)
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", defaultStr(cfg.RedisURL, "redis://localhost:6379/0"))
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.TokenSecret = getEnv("TOKEN_SECRET", cfg.TokenSecret)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	cfg.SessionTimeoutHours = getEnvInt("SESSION_TIMEOUT_HOURS", defaultInt(cfg.SessionTimeoutHours, 24))
	cfg.MaxTextLength = getEnvInt("MAX_TEXT_LENGTH", defaultInt(cfg.MaxTextLength, 3000))
	cfg.MaxQuestionLength = getEnvInt("MAX_QUESTION_LENGTH", defaultInt(cfg.MaxQuestionLength, 100))
	cfg.MaxLogEntries = getEnvInt("MAX_LOG_ENTRIES", defaultInt(cfg.MaxLogEntries, 50))
	cfg.LogDisplayLimit = getEnvInt("LOG_DISPLAY_LIMIT", defaultInt(cfg.LogDisplayLimit, 20))
	cfg.MinPasswordLength = getEnvInt("MIN_PASSWORD_LENGTH", defaultInt(cfg.MinPasswordLength, 8))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required for session tokens")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func defaultStr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func defaultInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
