package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrUnsupportedFormat is returned for file types no loader is registered for
var ErrUnsupportedFormat = errors.New("unsupported model format")

// Reason classifies why a load failed
type Reason int

const (
	// ReasonParse means the loader rejected the file contents.
	ReasonParse Reason = iota
	// ReasonFetch means the source could not be opened or read.
	ReasonFetch
	// ReasonTimeout means the load deadline passed.
	ReasonTimeout
	// ReasonCanceled means the caller gave up on the load.
	ReasonCanceled
	// ReasonUnsupported means no loader handles the file type.
	ReasonUnsupported
)

func (r Reason) String() string {
	switch r {
	case ReasonParse:
		return "parse"
	case ReasonFetch:
		return "fetch"
	case ReasonTimeout:
		return "timeout"
	case ReasonCanceled:
		return "canceled"
	case ReasonUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// LoadError reports a failed model load
type LoadError struct {
	Source string
	Reason Reason
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s error: %v", e.Source, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Classify wraps err into a *LoadError for source, keeping an existing
// classification when err already carries one
func Classify(source string, err error) *LoadError {
	if err == nil {
		return nil
	}

	var le *LoadError
	if errors.As(err, &le) {
		return le
	}

	reason := ReasonParse
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(err, context.Canceled):
		reason = ReasonCanceled
	case errors.Is(err, ErrUnsupportedFormat):
		reason = ReasonUnsupported
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		reason = ReasonFetch
	}
	return &LoadError{Source: source, Reason: reason, Err: err}
}
