// Package errkind holds the sentinel error kinds shared by adapters, stores and the
// orchestrator. Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
package errkind

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks invalid caller arguments, raised before any network call.
	ErrInput = errors.New("invalid input")
	// ErrShape marks an upstream response that is not the expected JSON shape.
	ErrShape = errors.New("unexpected response shape")
	// ErrConfig marks missing or malformed configuration.
	ErrConfig = errors.New("configuration error")
)

func Input(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}

func Shape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShape, fmt.Sprintf(format, args...))
}

func Config(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
