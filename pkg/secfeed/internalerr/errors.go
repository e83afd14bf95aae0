package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrMalformedFeed     = errors.New("malformed feed")
	ErrTitleFormat       = errors.New("unexpected title format")
	ErrFilingInfoFormat  = errors.New("unexpected filing info format")
	ErrMissingTimestamp  = errors.New("missing timestamp")
	ErrUnknownFilingType = errors.New("unknown filing type")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// FormatError reports feed text that did not have the expected shape.
// Kind is one of the sentinels above and is what errors.Is matches.
type FormatError struct {
	Kind   error
	Input  string
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %q", e.Kind, e.Input)
	}
	return fmt.Sprintf("%v: %s: %q", e.Kind, e.Detail, e.Input)
}

func (e *FormatError) Unwrap() error { return e.Kind }

// Format builds a FormatError.
func Format(kind error, input, detail string) error {
	return &FormatError{Kind: kind, Input: input, Detail: detail}
}

// StoreError wraps a failure from the dedup store. It matches both
// ErrStoreUnavailable and the underlying driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// Store wraps err as a StoreError, passing nil through.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
