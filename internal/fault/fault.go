// Package fault defines the tagged error kinds shared by the store,
// attachment, lifecycle and HTTP layers.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch without parsing messages.
type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	ValidationFailure
	UnsupportedMediaType
	IOFailure
	TransactionFailure
	Conflict
	Forbidden
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ValidationFailure:
		return "validation_failure"
	case UnsupportedMediaType:
		return "unsupported_media_type"
	case IOFailure:
		return "io_failure"
	case TransactionFailure:
		return "transaction_failure"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error carries a kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// E wraps err with a kind. A nil err yields an error describing only the kind.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with kind unless it already carries one. Nil stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != Unknown {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the outermost kind found in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	for err != nil {
		if !errors.As(err, &fe) {
			return Unknown
		}
		if fe.Kind != Unknown {
			return fe.Kind
		}
		err = fe.Err
	}
	return Unknown
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the text of err without the op prefixes added by this
// package, for showing to clients.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	for errors.As(err, &fe) && fe.Err != nil {
		err = fe.Err
	}
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return err.Error()
}
