package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/linechat/internal/transport"
)

// RateLimitConfig defines the parameters for per-connection chat line rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the settings of every listener and the chat core.
type Config struct {
	// ChatAddr is the line-delimited TCP chat listener.
	ChatAddr string
	// FileAddr is the file service listener; empty disables it.
	FileAddr string
	// HTTPAddr serves the websocket gateway, health and metrics; empty disables it.
	HTTPAddr string

	AllowedOrigins  []string
	MaxLineLength   int
	RoomCapacity    int
	WriteTimeout    time.Duration
	RateLimit       RateLimitConfig
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

const (
	defaultChatAddr        = ":7878"
	defaultFileAddr        = ":9898"
	defaultHTTPAddr        = ":8080"
	defaultMaxLineLength   = 4096
	defaultRoomCapacity    = 32
	defaultWriteTimeout    = 10 * time.Second
	defaultRateBurst       = 10
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
)

func defaultConfig() Config {
	return Config{
		ChatAddr: defaultChatAddr,
		FileAddr: defaultFileAddr,
		HTTPAddr: defaultHTTPAddr,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxLineLength: defaultMaxLineLength,
		RoomCapacity:  defaultRoomCapacity,
		WriteTimeout:  defaultWriteTimeout,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateBurst,
			RefillInterval: defaultRefillInterval,
		},
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}

// Sanitize returns a copy of cfg with every invalid field replaced by its default.
// FileAddr and HTTPAddr are left empty when empty, which disables that listener.
func (cfg Config) Sanitize() Config {
	if cfg.ChatAddr == "" {
		cfg.ChatAddr = defaultChatAddr
	}

	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = defaultMaxLineLength
	}
	cfg.MaxLineLength = min(cfg.MaxLineLength, transport.MaxLineLengthLimit)

	if cfg.RoomCapacity <= 0 {
		cfg.RoomCapacity = defaultRoomCapacity
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultRateBurst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRefillInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		cfg.LogFormat = defaultLogFormat
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if addr, ok := os.LookupEnv("CHAT_ADDR"); ok && addr != "" {
		cfg.ChatAddr = addr
	}

	// An explicitly empty FILE_ADDR or HTTP_ADDR disables the listener.
	if addr, ok := os.LookupEnv("FILE_ADDR"); ok {
		cfg.FileAddr = strings.TrimSpace(addr)
	}
	if addr, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = strings.TrimSpace(addr)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxLen := os.Getenv("MAX_LINE_LENGTH"); maxLen != "" {
		cfg.MaxLineLength = parseIntValue(maxLen, cfg.MaxLineLength)
	}

	if capacity := os.Getenv("ROOM_CAPACITY"); capacity != "" {
		cfg.RoomCapacity = parseIntValue(capacity, cfg.RoomCapacity)
	}

	if timeout := os.Getenv("WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseSeconds(timeout, cfg.WriteTimeout)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseSeconds(timeout, cfg.ShutdownTimeout)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(level))
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(format))
	}

	sanitized := cfg.Sanitize()
	return &sanitized
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
