package fault

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	base := E(NotFound, "get task", errors.New("task 7"))
	wrapped := fmt.Errorf("update: %w", base)

	if got := KindOf(wrapped); got != NotFound {
		t.Fatalf("expected not_found, got %s", got)
	}
	if !Is(wrapped, NotFound) {
		t.Fatal("expected Is to match not_found")
	}
	if Is(wrapped, IOFailure) {
		t.Fatal("expected Is to reject io_failure")
	}
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := E(UnsupportedMediaType, "stage", nil)
	got := Wrap(TransactionFailure, "create task", inner)
	if KindOf(got) != UnsupportedMediaType {
		t.Fatalf("expected kind to survive, got %s", KindOf(got))
	}

	plain := Wrap(TransactionFailure, "create task", os.ErrClosed)
	if KindOf(plain) != TransactionFailure {
		t.Fatalf("expected transaction_failure, got %s", KindOf(plain))
	}
	if !errors.Is(plain, os.ErrClosed) {
		t.Fatal("expected cause to stay reachable through Unwrap")
	}
	if Wrap(IOFailure, "noop", nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "op and cause", err: E(IOFailure, "promote", errors.New("disk full")), want: "promote: disk full"},
		{name: "op only", err: E(NotFound, "get file", nil), want: "get file: not_found"},
		{name: "kind only", err: E(Conflict, "", nil), want: "conflict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOfUnknownForPlainErrors(t *testing.T) {
	if KindOf(errors.New("boom")) != Unknown {
		t.Fatal("expected unknown for plain error")
	}
	if KindOf(nil) != Unknown {
		t.Fatal("expected unknown for nil")
	}
}

func TestMessageStripsOps(t *testing.T) {
	inner := Errorf(UnsupportedMediaType, "stage upload", "only PDF files are allowed")
	outer := Wrap(TransactionFailure, "create task", fmt.Errorf("attach: %w", inner))
	if got := Message(outer); got != "only PDF files are allowed" {
		t.Fatalf("Message() = %q", got)
	}
	if got := Message(E(NotFound, "get", nil)); got != "not_found" {
		t.Fatalf("Message() without cause = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Fatalf("Message() plain = %q", got)
	}
	if Message(nil) != "" {
		t.Fatal("expected empty message for nil")
	}
}
