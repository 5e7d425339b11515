package main

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"-4":      slog.LevelDebug,
		"2":       slog.Level(2),
	}
	for raw, want := range cases {
		got, err := parseLogLevel(raw)
		if err != nil {
			t.Fatalf("parseLogLevel(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := parseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSelectedLogLevel(t *testing.T) {
	tests := []struct {
		flag, env, config string
		wantRaw           string
		wantFrom          levelSource
	}{
		{"debug", "error", "warn", "debug", fromFlag},
		{"", "warn", "info", "warn", fromEnv},
		{" ", "", "error", "error", fromConfig},
		{"", "", "", "", fromDefault},
	}
	for _, tt := range tests {
		raw, source := selectedLogLevel(tt.flag, tt.env, tt.config)
		if raw != tt.wantRaw || source != tt.wantFrom {
			t.Fatalf("selectedLogLevel(%q, %q, %q) = %q/%s, want %q/%s",
				tt.flag, tt.env, tt.config, raw, source, tt.wantRaw, tt.wantFrom)
		}
	}
}

func TestConfigureLoggerForCLI(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		flag        string
		config      string
		wantErr     bool
		wantWarning string
	}{
		{name: "flag wins over bad env", env: "invalid", flag: "debug", config: "info"},
		{name: "bad flag", flag: "verbose", config: "info", wantErr: true},
		{name: "bad env", env: "verbose", config: "info", wantWarning: logLevelEnvKey + `="verbose"; defaulting to info`},
		{name: "bad config", config: "verbose", wantWarning: `invalid log_level="verbose"`},
		{name: "all empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(logLevelEnvKey, tt.env)
			warning, err := configureLoggerForCLI(tt.flag, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("configure logger: %v", err)
			}
			if tt.wantWarning == "" && warning != "" {
				t.Fatalf("expected no warning, got %q", warning)
			}
			if !strings.Contains(warning, tt.wantWarning) {
				t.Fatalf("expected warning containing %q, got %q", tt.wantWarning, warning)
			}
		})
	}
}
