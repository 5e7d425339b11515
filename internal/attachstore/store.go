// Package attachstore keeps uploaded attachment binaries on local disk.
//
// Uploads are first staged under a flat staging directory with a generated
// name, then promoted by rename into <root>/<taskID>/<name> when the owning
// task write commits.
package attachstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tasktrack/internal/fault"
	"tasktrack/internal/metrics"
	"tasktrack/internal/models"
)

const (
	// DefaultMediaType is the only media type accepted unless configured otherwise.
	DefaultMediaType = "application/pdf"

	defaultStagingDirName = ".staging"
	backupPrefix          = ".bak-"
	maxFileNameLength     = 255
)

var pdfSignature = []byte("%PDF-")

// Options tunes a Store. Zero values select defaults.
type Options struct {
	StagingDir      string
	MediaType       string
	MaxBytes        int64
	VerifySignature bool
	Logger          *slog.Logger
}

// Store stages and promotes attachment binaries.
type Store struct {
	root            string
	staging         string
	mediaType       string
	maxBytes        int64
	verifySignature bool
	logger          *slog.Logger
}

// New creates the root and staging directories and returns a Store.
func New(root string, opts Options) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("attachment root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	staging := strings.TrimSpace(opts.StagingDir)
	if staging == "" {
		staging = filepath.Join(absRoot, defaultStagingDirName)
	}
	absStaging, err := filepath.Abs(staging)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{absRoot, absStaging} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	mediaType := strings.ToLower(strings.TrimSpace(opts.MediaType))
	if mediaType == "" {
		mediaType = DefaultMediaType
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		root:            absRoot,
		staging:         absStaging,
		mediaType:       mediaType,
		maxBytes:        opts.MaxBytes,
		verifySignature: opts.VerifySignature,
		logger:          logger,
	}, nil
}

// Root returns the absolute attachment root.
func (s *Store) Root() string { return s.root }

// StagingDir returns the absolute staging directory.
func (s *Store) StagingDir() string { return s.staging }

// MediaType returns the accepted media type.
func (s *Store) MediaType() string { return s.mediaType }

// TaskDir returns the permanent directory for one task's attachments.
func (s *Store) TaskDir(taskID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(taskID, 10))
}

// StageUpload writes r to a new uniquely named file in the staging directory.
func (s *Store) StageUpload(ctx context.Context, r io.Reader, declaredContentType, originalName string) (models.TempUploadedFile, error) {
	const op = "stage upload"
	var zero models.TempUploadedFile

	if !s.accepts(declaredContentType) {
		return zero, fault.E(fault.UnsupportedMediaType, op, s.mediaTypeError())
	}
	name, err := SafeName(originalName)
	if err != nil {
		return zero, fault.E(fault.ValidationFailure, op, err)
	}
	if r == nil {
		return zero, fault.Errorf(fault.ValidationFailure, op, "no file uploaded")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tempPath := filepath.Join(s.staging, uuid.NewString()+s.extension())
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return zero, fault.E(fault.IOFailure, op, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tempPath)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	var head bytes.Buffer
	n, err := io.Copy(f, io.TeeReader(src, &prefixWriter{buf: &head, limit: len(pdfSignature)}))
	if err != nil {
		cleanup()
		return zero, fault.E(fault.IOFailure, op, err)
	}
	switch {
	case n == 0:
		cleanup()
		return zero, fault.Errorf(fault.ValidationFailure, op, "no file uploaded")
	case s.maxBytes > 0 && n > s.maxBytes:
		cleanup()
		return zero, fault.Errorf(fault.ValidationFailure, op, "file exceeds %d bytes", s.maxBytes)
	case s.verifySignature && s.mediaType == DefaultMediaType && !bytes.HasPrefix(head.Bytes(), pdfSignature):
		cleanup()
		return zero, fault.Errorf(fault.UnsupportedMediaType, op, "file content is not a PDF document")
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return zero, fault.E(fault.IOFailure, op, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return zero, fault.E(fault.IOFailure, op, err)
	}

	metrics.StagedUploads.Inc()
	return models.TempUploadedFile{
		FileName:     name,
		TempFilePath: tempPath,
		ContentType:  s.mediaType,
		Size:         n,
	}, nil
}

// ResolveStaged validates that tempPath names a file directly inside the
// staging directory and returns its cleaned absolute form.
func (s *Store) ResolveStaged(tempPath string) (string, error) {
	const op = "resolve staged upload"
	tempPath = strings.TrimSpace(tempPath)
	if tempPath == "" {
		return "", fault.Errorf(fault.ValidationFailure, op, "temp file path is required")
	}
	abs, err := filepath.Abs(tempPath)
	if err != nil {
		return "", fault.E(fault.ValidationFailure, op, err)
	}
	base := filepath.Base(abs)
	if filepath.Dir(abs) != s.staging || strings.HasPrefix(base, ".") {
		return "", fault.Errorf(fault.ValidationFailure, op, "%q is not a staged upload", tempPath)
	}
	return abs, nil
}

// Promote moves tempPath to destinationDirectory/destinationName,
// overwriting any existing file there.
func (s *Store) Promote(tempPath, destinationDirectory, destinationName string) (string, error) {
	p, err := s.PromoteReversible(tempPath, destinationDirectory, destinationName)
	if err != nil {
		return "", err
	}
	p.Commit()
	return p.Path, nil
}

// PromoteReversible moves a staged file into place and keeps enough state to
// undo the move. An existing destination is set aside until Commit or Revert.
func (s *Store) PromoteReversible(tempPath, destinationDirectory, destinationName string) (*Promotion, error) {
	const op = "promote upload"

	name, err := SafeName(destinationName)
	if err != nil {
		return nil, fault.E(fault.ValidationFailure, op, err)
	}
	info, err := os.Stat(tempPath)
	if err != nil {
		return nil, fault.E(fault.IOFailure, op, fmt.Errorf("staged file: %w", err))
	}
	if !info.Mode().IsRegular() {
		return nil, fault.Errorf(fault.IOFailure, op, "staged file %q is not a regular file", tempPath)
	}
	if err := os.MkdirAll(destinationDirectory, 0o755); err != nil {
		return nil, fault.E(fault.IOFailure, op, err)
	}

	dst := filepath.Join(destinationDirectory, name)
	backup := ""
	if _, err := os.Lstat(dst); err == nil {
		backup = filepath.Join(destinationDirectory, backupPrefix+uuid.NewString()+"-"+name)
		if err := os.Rename(dst, backup); err != nil {
			return nil, fault.E(fault.IOFailure, op, fmt.Errorf("set aside existing file: %w", err))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fault.E(fault.IOFailure, op, err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		if backup != "" {
			if restoreErr := os.Rename(backup, dst); restoreErr != nil {
				err = errors.Join(err, fmt.Errorf("restore existing file: %w", restoreErr))
			}
		}
		return nil, fault.E(fault.IOFailure, op, err)
	}

	return &Promotion{Path: dst, TempPath: tempPath, backup: backup, logger: s.logger}, nil
}

// Discard removes a staged file. Failures are logged and swallowed.
func (s *Store) Discard(tempPath string) {
	if strings.TrimSpace(tempPath) == "" {
		return
	}
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("discard staged upload", "path", tempPath, "error", err)
	}
}

// DeletePermanent removes a promoted file. A missing file is not an error.
func (s *Store) DeletePermanent(filePath string) error {
	const op = "delete attachment"
	if !s.withinRoot(filePath) {
		return fault.Errorf(fault.ValidationFailure, op, "%q is outside the attachment root", filePath)
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fault.E(fault.IOFailure, op, err)
	}
	return nil
}

// RemoveTaskDir removes a task's attachment directory when it is empty.
func (s *Store) RemoveTaskDir(taskID int64) {
	dir := s.TaskDir(taskID)
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("keep task attachment dir", "path", dir, "error", err)
	}
}

// Open opens a promoted file for reading.
func (s *Store) Open(filePath string) (*os.File, error) {
	const op = "open attachment"
	if !s.withinRoot(filePath) {
		return nil, fault.Errorf(fault.NotFound, op, "%q is outside the attachment root", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.E(fault.NotFound, op, err)
		}
		return nil, fault.E(fault.IOFailure, op, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fault.E(fault.IOFailure, op, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fault.Errorf(fault.NotFound, op, "%q is not a regular file", filePath)
	}
	return f, nil
}

// SweepStaging deletes staged files last modified before now-olderThan.
func (s *Store) SweepStaging(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.staging)
	if err != nil {
		return 0, fault.E(fault.IOFailure, "sweep staging", err)
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(s.staging, entry.Name())
		if err := os.Remove(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("sweep staged upload", "path", p, "error", err)
			}
			continue
		}
		removed++
	}
	metrics.StagingSwept.Add(float64(removed))
	return removed, nil
}

// SafeName reduces a client-supplied name to a plain file name.
func SafeName(original string) (string, error) {
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(original, `\`, "/")))
	switch {
	case name == "", name == ".", name == "..", name == "/":
		return "", fmt.Errorf("file name is required")
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("file name %q must not start with a dot", name)
	case len(name) > maxFileNameLength:
		return "", fmt.Errorf("file name must be at most %d bytes", maxFileNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("file name contains control characters")
		}
	}
	return name, nil
}

func (s *Store) accepts(declared string) bool {
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(declared))
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed, s.mediaType)
}

func (s *Store) mediaTypeError() error {
	if s.mediaType == DefaultMediaType {
		return errors.New("only PDF files are allowed")
	}
	return fmt.Errorf("only %s files are allowed", s.mediaType)
}

func (s *Store) extension() string {
	if s.mediaType == DefaultMediaType {
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(s.mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func (s *Store) withinRoot(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// prefixWriter keeps the first limit bytes written to it.
type prefixWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	if room := w.limit - w.buf.Len(); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		w.buf.Write(p[:room])
	}
	return len(p), nil
}
