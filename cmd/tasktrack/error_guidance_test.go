package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"tasktrack/internal/auth"
	"tasktrack/internal/fault"
)

func TestFormatCLIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{
			name: "weak password",
			err:  fmt.Errorf("create user: %w", auth.ErrWeakPassword),
			hint: "hint: passwords need 8+ characters with upper and lower case, a digit and one of @$!%*?&.",
		},
		{
			name: "conflict",
			err:  fault.Errorf(fault.Conflict, "create department", "department %q already exists", "Sales"),
			hint: "hint: the name is already taken; list existing entries before retrying.",
		},
		{
			name: "missing path",
			err:  &os.PathError{Op: "open", Path: "/nope/db", Err: os.ErrNotExist},
			hint: "hint: check db_path and attachments.root with: tasktrack config get db_path",
		},
		{
			name: "listen failure",
			err:  fmt.Errorf("http server: %w", &net.OpError{Op: "listen", Net: "tcp", Err: errors.New("address already in use")}),
			hint: "hint: listen_addr is unavailable; is another tasktrack srv running?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := formatCLIError(tt.err)
			if len(lines) == 0 || lines[0] != tt.err.Error() {
				t.Fatalf("expected error text first, got %v", lines)
			}
			if !containsLine(lines, tt.hint) {
				t.Fatalf("expected %q in %v", tt.hint, lines)
			}
		})
	}
}

func TestFormatCLIErrorPlain(t *testing.T) {
	lines := formatCLIError(errors.New("boom"))
	if len(lines) != 1 || lines[0] != "boom" {
		t.Fatalf("expected bare message, got %v", lines)
	}
	if formatCLIError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
