package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   string
	}{
		{"default", &Config{}, "info"},
		{"verbose", &Config{Verbose: true}, "debug"},
		{"quiet", &Config{Quiet: true}, "warn"},
		{"verbose and quiet prefers quiet", &Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit level wins over verbose", &Config{Verbose: true, LogLevel: "error"}, "error"},
		{"invalid level falls back to info", &Config{LogLevel: "loud"}, "info"},
		{"trace is accepted", &Config{LogLevel: "trace"}, "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineLogLevel(tt.config))
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	assert.Equal(t, "debug", validateLogLevel("debug"))
	assert.Equal(t, "info", validateLogLevel("nonsense"))
	assert.Equal(t, "info", validateLogLevel(""))
}
