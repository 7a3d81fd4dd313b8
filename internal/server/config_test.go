package server

import (
	"math"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/Tyrowin/linechat/internal/transport"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.ChatAddr != ":7878" || cfg.FileAddr != ":9898" || cfg.HTTPAddr != ":8080" {
		t.Errorf("addresses = %q %q %q", cfg.ChatAddr, cfg.FileAddr, cfg.HTTPAddr)
	}
	if cfg.MaxLineLength != 4096 {
		t.Errorf("MaxLineLength = %d, want 4096", cfg.MaxLineLength)
	}
	if cfg.RoomCapacity != 32 {
		t.Errorf("RoomCapacity = %d, want 32", cfg.RoomCapacity)
	}
	if cfg.RateLimit.Burst != 10 || cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.WriteTimeout != 10*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("timeouts = %v %v", cfg.WriteTimeout, cfg.ShutdownTimeout)
	}
	if want := []string{"http://localhost:8080"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("logging = %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_ADDR", ":7000")
	t.Setenv("FILE_ADDR", "")
	t.Setenv("HTTP_ADDR", " :9000 ")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("MAX_LINE_LENGTH", "1024")
	t.Setenv("ROOM_CAPACITY", "8")
	t.Setenv("WRITE_TIMEOUT", "3")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "5")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := NewConfigFromEnv()

	if cfg.ChatAddr != ":7000" {
		t.Errorf("ChatAddr = %q, want :7000", cfg.ChatAddr)
	}
	if cfg.FileAddr != "" {
		t.Errorf("FileAddr = %q, want empty (disabled)", cfg.FileAddr)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want :9000", cfg.HTTPAddr)
	}
	if want := []string{"http://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.MaxLineLength != 1024 || cfg.RoomCapacity != 8 {
		t.Errorf("MaxLineLength=%d RoomCapacity=%d", cfg.MaxLineLength, cfg.RoomCapacity)
	}
	if cfg.WriteTimeout != 3*time.Second || cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("timeouts = %v %v", cfg.WriteTimeout, cfg.ShutdownTimeout)
	}
	if cfg.RateLimit.Burst != 4 || cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("logging = %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestNewConfigFromEnvInvalidValues(t *testing.T) {
	t.Setenv("MAX_LINE_LENGTH", "-1")
	t.Setenv("ROOM_CAPACITY", "lots")
	t.Setenv("WRITE_TIMEOUT", "0")
	t.Setenv("RATE_LIMIT_BURST", "abc")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "-5")
	t.Setenv("LOG_FORMAT", "xml")

	cfg := NewConfigFromEnv()
	def := NewConfig()

	if cfg.MaxLineLength != def.MaxLineLength {
		t.Errorf("MaxLineLength = %d, want default", cfg.MaxLineLength)
	}
	if cfg.RoomCapacity != def.RoomCapacity {
		t.Errorf("RoomCapacity = %d, want default", cfg.RoomCapacity)
	}
	if cfg.WriteTimeout != def.WriteTimeout {
		t.Errorf("WriteTimeout = %v, want default", cfg.WriteTimeout)
	}
	if cfg.RateLimit != def.RateLimit {
		t.Errorf("RateLimit = %+v, want default", cfg.RateLimit)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("LogFormat = %q, want console", cfg.LogFormat)
	}
}

func TestConfigSanitize(t *testing.T) {
	origins := []string{"http://localhost:3000"}
	cfg := Config{AllowedOrigins: origins}.Sanitize()

	if cfg.ChatAddr != ":7878" {
		t.Errorf("ChatAddr = %q, want default", cfg.ChatAddr)
	}
	if cfg.FileAddr != "" || cfg.HTTPAddr != "" {
		t.Errorf("optional listeners enabled by Sanitize: %q %q", cfg.FileAddr, cfg.HTTPAddr)
	}
	if cfg.MaxLineLength <= 0 || cfg.RoomCapacity <= 0 || cfg.WriteTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		t.Errorf("Sanitize left invalid fields: %+v", cfg)
	}

	cfg.AllowedOrigins[0] = "changed"
	if origins[0] != "http://localhost:3000" {
		t.Error("Sanitize shares the AllowedOrigins backing array")
	}
}

func TestConfigSanitizeCapsMaxLineLength(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"within limit", 1024, 1024},
		{"at limit", transport.MaxLineLengthLimit, transport.MaxLineLengthLimit},
		{"above limit", transport.MaxLineLengthLimit + 1, transport.MaxLineLengthLimit},
		{"max int", math.MaxInt, transport.MaxLineLengthLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{MaxLineLength: tt.value}.Sanitize()
			if cfg.MaxLineLength != tt.want {
				t.Errorf("MaxLineLength = %d, want %d", cfg.MaxLineLength, tt.want)
			}
		})
	}
}

func TestNewConfigFromEnvHugeLineLength(t *testing.T) {
	t.Setenv("MAX_LINE_LENGTH", strconv.Itoa(math.MaxInt))

	if cfg := NewConfigFromEnv(); cfg.MaxLineLength != transport.MaxLineLengthLimit {
		t.Errorf("MaxLineLength = %d, want %d", cfg.MaxLineLength, transport.MaxLineLengthLimit)
	}
}
