package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBPath   string        `mapstructure:"db_path"`
	Timezone string        `mapstructure:"timezone"`
	Backend  BackendConfig `mapstructure:"backend"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Log      LogConfig     `mapstructure:"log"`
	Server   ServerConfig  `mapstructure:"server"`
}

type BackendConfig struct {
	// Kind is one of demo, http, openai.
	Kind    string        `mapstructure:"kind"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

const (
	BackendDemo   = "demo"
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// DefaultPath returns ~/.levelup/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".levelup", "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "")
	v.SetDefault("timezone", "Local")
	v.SetDefault("backend.kind", BackendDemo)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", 120*time.Second)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.mode", "release")
}

// Load reads the YAML file at path (the default location when empty) and
// applies LEVELUP_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LEVELUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("db_path", "LEVELUP_DB_PATH")
	v.BindEnv("timezone", "LEVELUP_TIMEZONE")
	v.BindEnv("backend.kind", "LEVELUP_BACKEND_KIND")
	v.BindEnv("backend.url", "LEVELUP_BACKEND_URL")
	v.BindEnv("backend.timeout", "LEVELUP_BACKEND_TIMEOUT")
	v.BindEnv("openai.api_key", "LEVELUP_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "LEVELUP_OPENAI_MODEL")
	v.BindEnv("openai.base_url", "LEVELUP_OPENAI_BASE_URL")
	v.BindEnv("log.level", "LEVELUP_LOG_LEVEL")
	v.BindEnv("log.file", "LEVELUP_LOG_FILE")
	v.BindEnv("server.addr", "LEVELUP_SERVER_ADDR")
	v.BindEnv("server.mode", "LEVELUP_SERVER_MODE")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendDemo:
	case BackendHTTP:
		if strings.TrimSpace(c.Backend.URL) == "" {
			return fmt.Errorf("backend.url is required for the http backend")
		}
	case BackendOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			return fmt.Errorf("openai.api_key is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown backend.kind %q (want demo, http or openai)", c.Backend.Kind)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; empty and "Local" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("db_path", cfg.DBPath)
	v.Set("timezone", cfg.Timezone)
	v.Set("backend.kind", cfg.Backend.Kind)
	v.Set("backend.url", cfg.Backend.URL)
	v.Set("backend.timeout", cfg.Backend.Timeout.String())
	v.Set("openai.api_key", cfg.OpenAI.APIKey)
	v.Set("openai.model", cfg.OpenAI.Model)
	v.Set("openai.base_url", cfg.OpenAI.BaseURL)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.mode", cfg.Server.Mode)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
