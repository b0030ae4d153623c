package manifest

import (
	"errors"
	"fmt"
)

// ErrUnreadableContent is returned by VFS backends when a file exists but its
// bytes cannot be represented as text. Capture records such files with nil
// content rather than dropping them.
var ErrUnreadableContent = errors.New("file content is not readable as text")

// ValidationError reports a manifest whose shape or version is unacceptable.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid manifest: %s: %v", e.Reason, e.Err)
	}
	return "invalid manifest: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
