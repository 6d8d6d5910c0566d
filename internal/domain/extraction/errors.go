package extraction

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can map it to a response.
type Kind string

const (
	KindInvalidInput Kind = "InvalidInput"
	KindUpstream     Kind = "UpstreamError"
	KindParse        Kind = "ParseError"
	KindShape        Kind = "ShapeError"
	KindStorage      Kind = "StorageError"
	KindInternal     Kind = "InternalError"
)

// ErrQuotaExceeded indicates the model provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("model quota exceeded")

var (
	ErrEmptyText = errors.New("text must not be empty")
	ErrNoJSON    = errors.New("no JSON object found in model output")
)

// Error carries the failure kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind. An err that already carries a kind keeps it.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err, or KindInternal when none is attached.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Message returns the innermost description without the kind prefix.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}
