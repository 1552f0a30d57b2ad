package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Addr            string
	LogLevel        string
	Dev             bool
	AllowedOrigins  []string
	ArchiveDSN      string
	OutboxSize      int
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then resolves flags with
// environment fallback.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse(args, os.Getenv)
}

// Parse resolves flags first; a flag that was not given falls back to its
// environment variable, then to the default.
func Parse(args []string, getenv func(string) string) (Config, error) {
	var cfg Config

	fset := pflag.NewFlagSet("live-poll", pflag.ContinueOnError)
	fset.StringVar(&cfg.Addr, "addr", ":3001", "listen address (ADDR)")
	fset.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (LOG_LEVEL)")
	fset.BoolVar(&cfg.Dev, "dev", false, "human readable logs (DEV)")
	fset.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", nil, "websocket origin patterns (ALLOWED_ORIGINS)")
	fset.StringVar(&cfg.ArchiveDSN, "archive-dsn", "", "postgres DSN for the poll archive, empty disables it (ARCHIVE_DSN)")
	fset.IntVar(&cfg.OutboxSize, "outbox-size", 32, "per-connection outbound buffer (OUTBOX_SIZE)")
	fset.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown budget (SHUTDOWN_TIMEOUT)")

	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	env := func(flag, key string) (string, bool) {
		if fset.Changed(flag) {
			return "", false
		}
		v := strings.TrimSpace(getenv(key))
		return v, v != ""
	}

	if v, ok := env("addr", "ADDR"); ok {
		cfg.Addr = v
	} else if v, ok := env("addr", "PORT"); ok {
		cfg.Addr = ":" + v
	}
	if v, ok := env("log-level", "LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := env("dev", "DEV"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEV %q: %w", v, err)
		}
		cfg.Dev = b
	}
	if v, ok := env("allowed-origins", "ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v, ok := env("archive-dsn", "ARCHIVE_DSN"); ok {
		cfg.ArchiveDSN = v
	}
	if v, ok := env("outbox-size", "OUTBOX_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OUTBOX_SIZE %q: %w", v, err)
		}
		cfg.OutboxSize = n
	}
	if v, ok := env("shutdown-timeout", "SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		cfg.ShutdownTimeout = d
	}

	if cfg.OutboxSize <= 0 {
		return Config{}, fmt.Errorf("outbox size must be positive, got %d", cfg.OutboxSize)
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("shutdown timeout must be positive, got %s", cfg.ShutdownTimeout)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	return cfg, nil
}

func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
