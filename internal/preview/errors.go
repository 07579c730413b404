package preview

import (
	"errors"
	"fmt"
)

var (
	// ErrCaptureUnavailable means no canvas could be obtained for a capture.
	// No thumbnail callback fires and the session stays open.
	ErrCaptureUnavailable = errors.New("preview: capture unavailable")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("preview: session closed")
	// ErrNotReady is returned when no asset has been loaded yet.
	ErrNotReady = errors.New("preview: session not ready")
)

// RenderResourceError reports that the render surface could not be acquired
// when the session started
type RenderResourceError struct {
	Width  int
	Height int
	Err    error
}

func (e *RenderResourceError) Error() string {
	return fmt.Sprintf("preview: render surface %dx%d unavailable: %v", e.Width, e.Height, e.Err)
}

func (e *RenderResourceError) Unwrap() error {
	return e.Err
}
