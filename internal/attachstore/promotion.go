package attachstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tasktrack/internal/fault"
)

// Promotion is a staged file moved into permanent storage that can still be
// undone until Commit is called.
type Promotion struct {
	Path     string
	TempPath string

	backup string
	done   bool
	logger *slog.Logger
}

// Overwrote reports whether an existing file was replaced.
func (p *Promotion) Overwrote() bool {
	return p.backup != ""
}

// Commit drops the set-aside copy of any overwritten file.
func (p *Promotion) Commit() {
	if p == nil || p.done {
		return
	}
	p.done = true
	if p.backup == "" {
		return
	}
	if err := os.Remove(p.backup); err != nil && !errors.Is(err, os.ErrNotExist) && p.logger != nil {
		p.logger.Warn("remove overwritten attachment", "path", p.backup, "error", err)
	}
}

// Revert moves the promoted file back to its staged path and restores any
// overwritten file.
func (p *Promotion) Revert() error {
	if p == nil || p.done {
		return nil
	}
	p.done = true

	var errs []error
	if err := os.Rename(p.Path, p.TempPath); err != nil {
		errs = append(errs, fmt.Errorf("unstage %s: %w", p.Path, err))
	}
	if p.backup != "" {
		if err := os.Rename(p.backup, p.Path); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", p.Path, err))
		}
	}
	if len(errs) > 0 {
		return fault.E(fault.IOFailure, "revert promotion", errors.Join(errs...))
	}
	return nil
}
