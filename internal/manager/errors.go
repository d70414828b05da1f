package manager

import (
	"errors"
	"fmt"
)

// engineLoadError reports that the adapter failed to produce a ready engine.
// The manager is left not-loaded when it is returned.
type engineLoadError struct {
	modelID string
	cause   error
}

func (e engineLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.modelID, e.cause)
}

func (e engineLoadError) Unwrap() error { return e.cause }

// ErrEngineLoad wraps cause as an engine load failure for modelID.
func ErrEngineLoad(modelID string, cause error) error {
	return engineLoadError{modelID: modelID, cause: cause}
}

// IsEngineLoad reports whether err (or anything it wraps) is a load failure.
func IsEngineLoad(err error) bool {
	var e engineLoadError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp
// not compiled in, Ollama not reachable) so the HTTP layer can return 503.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
