package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"
)

const (
	EnvPrefix = "HRDESK_"

	DefaultBaseURL        = "https://openrouter.ai/api/v1"
	DefaultModel          = "minimax/minimax-m2:free"
	DefaultConversationID = "conv_import_001"
)

type Config struct {
	APIKey  string `json:"api_key" env:"API_KEY"`
	BaseURL string `json:"base_url" env:"BASE_URL"`
	Model   string `json:"model" env:"MODEL"`

	HTTPAddr     string `json:"http_addr" env:"HTTP_ADDR"`
	DatabasePath string `json:"database_path" env:"DATABASE_PATH"`

	// RedisAddr selects the Redis cache for history and form sessions. Empty keeps them in memory.
	RedisAddr string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisDB   int    `json:"redis_db" env:"REDIS_DB"`

	ConversationID string `json:"conversation_id" env:"CONVERSATION_ID"`
	// HistoryLimit caps the non-system messages kept per conversation. 0 keeps all of them.
	HistoryLimit   int    `json:"history_limit" env:"HISTORY_LIMIT"`
	ThemeVariant   string `json:"theme_variant" env:"THEME_VARIANT"`
	LogLevel       string `json:"log_level" env:"LOG_LEVEL"`

	// Offline answers with the built-in forms and replies and never calls the model.
	Offline bool `json:"offline" env:"OFFLINE"`
}

func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Model:          DefaultModel,
		HTTPAddr:       ":8080",
		DatabasePath:   "hrdesk.sqlite3",
		ConversationID: DefaultConversationID,
		HistoryLimit:   50,
		LogLevel:       "info",
	}
}

// Load reads path over the defaults, then applies HRDESK_* environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	conf := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := sonic.Unmarshal(data, &conf); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&conf, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) Validate() error {
	if !c.Offline && c.APIKey == "" {
		return errors.New("api_key is required unless offline mode is enabled")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
