package main

import (
	"context"
	"errors"
	"net"
	"os"

	"tasktrack/internal/auth"
	"tasktrack/internal/fault"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch {
	case errors.Is(err, auth.ErrWeakPassword):
		lines = append(lines, "hint: passwords need 8+ characters with upper and lower case, a digit and one of @$!%*?&.")
	case fault.Is(err, fault.Conflict):
		lines = append(lines, "hint: the name is already taken; list existing entries before retrying.")
	case fault.Is(err, fault.TransactionFailure):
		lines = append(lines, "hint: the database rejected the change; check TASKTRACK_DB and that no other writer holds a lock.")
	case errors.Is(err, context.DeadlineExceeded):
		lines = append(lines, "hint: operation timed out; the database may be locked by a running server.")
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		lines = append(lines, "hint: check db_path and attachments.root with: tasktrack config get db_path")
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) && netErr.Op == "listen" {
		lines = append(lines,
			"hint: listen_addr is unavailable; is another tasktrack srv running?",
			"hint: change it with: tasktrack config set listen_addr 127.0.0.1:7381",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
