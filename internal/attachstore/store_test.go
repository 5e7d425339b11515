package attachstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasktrack/internal/fault"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n"

func testStore(t *testing.T, opts Options) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "attachments"), opts)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st
}

func stagedCount(t *testing.T, st *Store) int {
	t.Helper()
	entries, err := os.ReadDir(st.StagingDir())
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	return len(entries)
}

func TestStageUploadAcceptsPDF(t *testing.T) {
	st := testStore(t, Options{})

	first, err := st.StageUpload(context.Background(), strings.NewReader(samplePDF), "application/pdf", "report.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if first.FileName != "report.pdf" || first.ContentType != "application/pdf" || first.Size != int64(len(samplePDF)) {
		t.Fatalf("unexpected descriptor %+v", first)
	}
	if filepath.Dir(first.TempFilePath) != st.StagingDir() {
		t.Fatalf("expected temp file in staging dir, got %s", first.TempFilePath)
	}

	second, err := st.StageUpload(context.Background(), strings.NewReader(samplePDF), "application/pdf; charset=binary", "report.pdf")
	if err != nil {
		t.Fatalf("stage second: %v", err)
	}
	if first.TempFilePath == second.TempFilePath {
		t.Fatal("expected distinct temp paths for repeated uploads")
	}
	if got := stagedCount(t, st); got != 2 {
		t.Fatalf("expected 2 staged files, got %d", got)
	}
}

func TestStageUploadRejectsOtherMediaTypes(t *testing.T) {
	st := testStore(t, Options{})

	_, err := st.StageUpload(context.Background(), strings.NewReader("png"), "image/png", "picture.png")
	if !fault.Is(err, fault.UnsupportedMediaType) {
		t.Fatalf("expected unsupported media type, got %v", err)
	}
	if !strings.Contains(err.Error(), "only PDF files are allowed") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if got := stagedCount(t, st); got != 0 {
		t.Fatalf("expected no temp file, got %d", got)
	}
}

func TestStageUploadValidation(t *testing.T) {
	st := testStore(t, Options{MaxBytes: 8, VerifySignature: true})

	tests := []struct {
		name     string
		body     string
		fileName string
		kind     fault.Kind
	}{
		{name: "empty body", body: "", fileName: "a.pdf", kind: fault.ValidationFailure},
		{name: "too large", body: samplePDF, fileName: "a.pdf", kind: fault.ValidationFailure},
		{name: "bad name", body: "%PDF-1", fileName: "..", kind: fault.ValidationFailure},
		{name: "hidden name", body: "%PDF-1", fileName: ".secret.pdf", kind: fault.ValidationFailure},
		{name: "not a pdf", body: "hello", fileName: "a.pdf", kind: fault.UnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.StageUpload(context.Background(), strings.NewReader(tt.body), "application/pdf", tt.fileName)
			if !fault.Is(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			if got := stagedCount(t, st); got != 0 {
				t.Fatalf("expected staging to stay empty, got %d", got)
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: `C:\fakepath\scan.pdf`, want: "scan.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: " spaced.pdf ", want: "spaced.pdf"},
		{in: "", wantErr: true},
		{in: "..", wantErr: true},
		{in: "dir/", wantErr: false, want: "dir"},
		{in: "bad\x00name.pdf", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SafeName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SafeName(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SafeName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPromoteMovesAndOverwrites(t *testing.T) {
	st := testStore(t, Options{})
	ctx := context.Background()

	staged, err := st.StageUpload(ctx, strings.NewReader(samplePDF), "application/pdf", "report.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	dest, err := st.Promote(staged.TempFilePath, st.TaskDir(7), staged.FileName)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if dest != filepath.Join(st.Root(), "7", "report.pdf") {
		t.Fatalf("unexpected destination %s", dest)
	}
	if _, err := os.Stat(staged.TempFilePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp file to be moved, stat err=%v", err)
	}

	replacement, err := st.StageUpload(ctx, strings.NewReader("%PDF-2.0 replacement"), "application/pdf", "report.pdf")
	if err != nil {
		t.Fatalf("stage replacement: %v", err)
	}
	if _, err := st.Promote(replacement.TempFilePath, st.TaskDir(7), "report.pdf"); err != nil {
		t.Fatalf("promote replacement: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-2.0 replacement" {
		t.Fatalf("expected overwrite, got %q", data)
	}
	entries, err := os.ReadDir(st.TaskDir(7))
	if err != nil {
		t.Fatalf("read task dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the promoted file, got %d entries", len(entries))
	}
}

func TestPromoteMissingSourceIsIOFailure(t *testing.T) {
	st := testStore(t, Options{})
	_, err := st.Promote(filepath.Join(st.StagingDir(), "missing.pdf"), st.TaskDir(1), "x.pdf")
	if !fault.Is(err, fault.IOFailure) {
		t.Fatalf("expected io failure, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(st.TaskDir(1), "x.pdf")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("expected no destination file")
	}
}

func TestPromotionRevertRestoresBothSides(t *testing.T) {
	st := testStore(t, Options{})
	ctx := context.Background()

	original, err := st.StageUpload(ctx, strings.NewReader("%PDF-original"), "application/pdf", "a.pdf")
	if err != nil {
		t.Fatalf("stage original: %v", err)
	}
	dest, err := st.Promote(original.TempFilePath, st.TaskDir(3), "a.pdf")
	if err != nil {
		t.Fatalf("promote original: %v", err)
	}

	incoming, err := st.StageUpload(ctx, strings.NewReader("%PDF-incoming"), "application/pdf", "a.pdf")
	if err != nil {
		t.Fatalf("stage incoming: %v", err)
	}
	p, err := st.PromoteReversible(incoming.TempFilePath, st.TaskDir(3), "a.pdf")
	if err != nil {
		t.Fatalf("promote reversible: %v", err)
	}
	if !p.Overwrote() {
		t.Fatal("expected overwrite to be tracked")
	}
	if err := p.Revert(); err != nil {
		t.Fatalf("revert: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "%PDF-original" {
		t.Fatalf("expected original content restored, got %q", data)
	}
	staged, err := os.ReadFile(incoming.TempFilePath)
	if err != nil {
		t.Fatalf("read staged: %v", err)
	}
	if string(staged) != "%PDF-incoming" {
		t.Fatalf("expected staged file back in place, got %q", staged)
	}
	if err := p.Revert(); err != nil {
		t.Fatalf("second revert should be a no-op: %v", err)
	}
}

func TestDiscardAndDeletePermanentAreIdempotent(t *testing.T) {
	st := testStore(t, Options{})
	ctx := context.Background()

	staged, err := st.StageUpload(ctx, strings.NewReader(samplePDF), "application/pdf", "a.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	st.Discard(staged.TempFilePath)
	st.Discard(staged.TempFilePath)
	if got := stagedCount(t, st); got != 0 {
		t.Fatalf("expected staging empty, got %d", got)
	}

	other, err := st.StageUpload(ctx, strings.NewReader(samplePDF), "application/pdf", "b.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	dest, err := st.Promote(other.TempFilePath, st.TaskDir(1), "b.pdf")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := st.DeletePermanent(dest); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeletePermanent(dest); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if err := st.DeletePermanent("/etc/hosts"); !fault.Is(err, fault.ValidationFailure) {
		t.Fatalf("expected refusal outside root, got %v", err)
	}
}

func TestResolveStaged(t *testing.T) {
	st := testStore(t, Options{})
	staged, err := st.StageUpload(context.Background(), strings.NewReader(samplePDF), "application/pdf", "a.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	got, err := st.ResolveStaged(staged.TempFilePath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != staged.TempFilePath {
		t.Fatalf("expected %s, got %s", staged.TempFilePath, got)
	}

	for _, bad := range []string{"", "/etc/passwd", filepath.Join(st.StagingDir(), "..", "1", "a.pdf"), filepath.Join(st.StagingDir(), ".hidden")} {
		if _, err := st.ResolveStaged(bad); !fault.Is(err, fault.ValidationFailure) {
			t.Fatalf("ResolveStaged(%q): expected validation failure, got %v", bad, err)
		}
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	st := testStore(t, Options{})
	if _, err := st.Open(filepath.Join(st.TaskDir(1), "gone.pdf")); !fault.Is(err, fault.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	staged, err := st.StageUpload(context.Background(), bytes.NewBufferString(samplePDF), "application/pdf", "a.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	dest, err := st.Promote(staged.TempFilePath, st.TaskDir(1), "a.pdf")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	f, err := st.Open(dest)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != samplePDF {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSweepStagingRemovesOnlyStaleFiles(t *testing.T) {
	st := testStore(t, Options{})
	ctx := context.Background()

	stale, err := st.StageUpload(ctx, strings.NewReader(samplePDF), "application/pdf", "old.pdf")
	if err != nil {
		t.Fatalf("stage stale: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale.TempFilePath, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	fresh, err := st.StageUpload(ctx, strings.NewReader(samplePDF), "application/pdf", "new.pdf")
	if err != nil {
		t.Fatalf("stage fresh: %v", err)
	}

	removed, err := st.SweepStaging(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(fresh.TempFilePath); err != nil {
		t.Fatalf("expected fresh upload to survive: %v", err)
	}
}
