package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, ":3001", c.Addr)
				assert.Equal(t, "info", c.LogLevel)
				assert.False(t, c.Dev)
				assert.Empty(t, c.AllowedOrigins)
				assert.Empty(t, c.ArchiveDSN)
				assert.Equal(t, 32, c.OutboxSize)
				assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
			},
		},
		{
			name: "env fills unset flags",
			env: map[string]string{
				"ADDR":             ":9000",
				"LOG_LEVEL":        "debug",
				"DEV":              "true",
				"ALLOWED_ORIGINS":  "localhost:3000, *.example.com",
				"ARCHIVE_DSN":      "postgres://poll@localhost/poll",
				"OUTBOX_SIZE":      "8",
				"SHUTDOWN_TIMEOUT": "2s",
			},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, ":9000", c.Addr)
				assert.Equal(t, "debug", c.LogLevel)
				assert.True(t, c.Dev)
				assert.Equal(t, []string{"localhost:3000", "*.example.com"}, c.AllowedOrigins)
				assert.Equal(t, "postgres://poll@localhost/poll", c.ArchiveDSN)
				assert.Equal(t, 8, c.OutboxSize)
				assert.Equal(t, 2*time.Second, c.ShutdownTimeout)
			},
		},
		{
			name: "flags win over env",
			args: []string{"--addr", ":7000", "--outbox-size", "4"},
			env:  map[string]string{"ADDR": ":9000", "OUTBOX_SIZE": "8"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, ":7000", c.Addr)
				assert.Equal(t, 4, c.OutboxSize)
			},
		},
		{
			name: "PORT is accepted",
			env:  map[string]string{"PORT": "4000"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, ":4000", c.Addr)
			},
		},
		{name: "bad outbox env", env: map[string]string{"OUTBOX_SIZE": "many"}, wantErr: true},
		{name: "zero outbox", args: []string{"--outbox-size", "0"}, wantErr: true},
		{name: "bad duration", env: map[string]string{"SHUTDOWN_TIMEOUT": "soon"}, wantErr: true},
		{name: "bad level", args: []string{"--log-level", "loud"}, wantErr: true},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.args, envOf(tt.env))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestLogger(t *testing.T) {
	c, err := Parse(nil, envOf(map[string]string{"LOG_LEVEL": "warn", "DEV": "1"}))
	require.NoError(t, err)

	log, err := c.Logger()
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}
