// Package config loads process configuration from the environment.
//
// Values come from environment variables, optionally seeded from a .env
// file. Variables already present in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Store    StoreConfig    `mapstructure:"store"`
	Bot      BotConfig      `mapstructure:"bot"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host               string        `mapstructure:"host" validate:"required"`
	Port               int           `mapstructure:"port" validate:"min=1,max=65535"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size" validate:"gt=0"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type StoreConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"min=0"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type BotConfig struct {
	Token     string `mapstructure:"token" validate:"required"`
	WebAppURL string `mapstructure:"webapp_url" validate:"required,startswith=https://,url"`
	Debug     bool   `mapstructure:"debug"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.host":                  "HOST",
	"server.port":                  "PORT",
	"server.request_timeout":       "REQUEST_TIMEOUT",
	"server.shutdown_timeout":      "SHUTDOWN_TIMEOUT",
	"server.max_request_body_size": "MAX_REQUEST_BODY_SIZE",
	"upstream.base_url":            "UPSTREAM_BASE_URL",
	"upstream.timeout":             "UPSTREAM_TIMEOUT",
	"store.backend":                "STORE_BACKEND",
	"store.redis_addr":             "REDIS_ADDR",
	"store.redis_password":         "REDIS_PASSWORD",
	"store.redis_db":               "REDIS_DB",
	"store.key_prefix":             "REDIS_KEY_PREFIX",
	"bot.token":                    "TELEGRAM_BOT_TOKEN",
	"bot.webapp_url":               "WEBAPP_URL",
	"bot.debug":                    "BOT_DEBUG",
	"log.level":                    "LOG_LEVEL",
	"log.format":                   "LOG_FORMAT",
	"tracing.enabled":              "TRACING_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.request_timeout", 35*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_request_body_size", 1<<20) // 1MB
	v.SetDefault("upstream.base_url", "https://5ka.ru/api")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.key_prefix", "miniapp:")
	v.SetDefault("bot.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.enabled", false)
}

// Load reads envFile (when set) into the environment and decodes the
// configuration. Without envFile a ./.env is used if present. Load does not
// validate; callers pick ValidateServe or ValidateBot for their process.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Bot.Token = strings.TrimSpace(cfg.Bot.Token)
	cfg.Bot.WebAppURL = strings.TrimSpace(cfg.Bot.WebAppURL)
	return &cfg, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// ValidateServe checks the settings the HTTP server needs.
func (c *Config) ValidateServe() error {
	return validate(c.Server, c.Upstream, c.Store, c.Log)
}

// ValidateBot checks the settings the bot process needs. The token has no
// default: a missing token is a startup error.
func (c *Config) ValidateBot() error {
	return validate(c.Bot, c.Log)
}

func validate(sections ...interface{}) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	var messages []string
	for _, s := range sections {
		if err := v.Struct(s); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			for _, e := range verrs {
				messages = append(messages, formatFieldError(e))
			}
		}
	}
	if len(messages) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	name := e.Namespace()
	if env, ok := envFor(e.StructNamespace()); ok {
		name = env
	}

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", name)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", name, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", name, e.Tag())
	}
}

// fieldEnv names the variable behind each validated struct field.
var fieldEnv = map[string]string{
	"ServerConfig.Host":               "HOST",
	"ServerConfig.Port":               "PORT",
	"ServerConfig.RequestTimeout":     "REQUEST_TIMEOUT",
	"ServerConfig.ShutdownTimeout":    "SHUTDOWN_TIMEOUT",
	"ServerConfig.MaxRequestBodySize": "MAX_REQUEST_BODY_SIZE",
	"UpstreamConfig.BaseURL":          "UPSTREAM_BASE_URL",
	"UpstreamConfig.Timeout":          "UPSTREAM_TIMEOUT",
	"StoreConfig.Backend":             "STORE_BACKEND",
	"StoreConfig.RedisAddr":           "REDIS_ADDR",
	"StoreConfig.RedisDB":             "REDIS_DB",
	"BotConfig.Token":                 "TELEGRAM_BOT_TOKEN",
	"BotConfig.WebAppURL":             "WEBAPP_URL",
	"LogConfig.Level":                 "LOG_LEVEL",
	"LogConfig.Format":                "LOG_FORMAT",
}

func envFor(structNamespace string) (string, bool) {
	env, ok := fieldEnv[structNamespace]
	return env, ok
}
