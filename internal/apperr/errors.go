// Package apperr defines the error taxonomy shared by the store, the
// migrator and the backend gateway. Callers wrap a sentinel with %w and
// match it with errors.Is at the command boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrFormat             = errors.New("invalid format")
	ErrAddress            = errors.New("invalid index")
	ErrValidation         = errors.New("validation failed")
	ErrNoHistory          = errors.New("no timesheet to resume")
	ErrMigrationRequired  = errors.New("filestore migration required")
	ErrUnsupportedVersion = errors.New("unsupported filestore version")
	ErrAuth               = errors.New("not authenticated")
	ErrNetwork            = errors.New("backend unreachable")
	ErrLocked             = errors.New("filestore is locked by another process")
	ErrNotFound           = errors.New("not found")
	ErrCorrupt            = errors.New("filestore corrupt")
)

// Errorf wraps kind with a formatted message. The result matches kind with
// errors.Is and reads "<message>: <kind>".
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// Fatal reports whether err must abort the process instead of being shown as
// a recoverable command failure.
func Fatal(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
