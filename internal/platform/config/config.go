package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Report   ReportConfig   `mapstructure:"report"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL        string `mapstructure:"url"`
	Migrations string `mapstructure:"migrations"`
}

// RulesConfig points at the rule table file; empty means the built-in table.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

type TelegramConfig struct {
	Token         string  `mapstructure:"token"`
	BaseURL       string  `mapstructure:"base_url"`
	DoctorChatID  int64   `mapstructure:"doctor_chat_id"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type ReportConfig struct {
	FontPaths []string `mapstructure:"font_paths"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional config.yaml and NABHA_*
// environment variables, over built-in defaults. A non-empty file path
// overrides the search paths.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/nabha-triage/")
	}

	v.SetEnvPrefix("NABHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations", "file://migrations")

	v.SetDefault("rules.path", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.doctor_chat_id", 0)
	v.SetDefault("telegram.rate_per_second", 1.0)

	v.SetDefault("report.font_paths", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks the values a misconfiguration would otherwise surface late.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Telegram.DoctorChatID != 0 && c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required when a doctor chat is configured")
	}
	return nil
}
