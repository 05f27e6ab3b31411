package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryLoad is returned, wrapped in a *LoadError, when registry data
	// cannot be read, validated or compiled.
	ErrRegistryLoad = errors.New("registry load failed")
	// ErrUnknownLanguage is returned when a name matches no registered language.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrSnapshotUnsupported is returned when a registry has no serializable source.
	ErrSnapshotUnsupported = errors.New("registry cannot be snapshotted")
)

// LoadError describes why a registry source was rejected.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrRegistryLoad, e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrRegistryLoad and the underlying cause to errors.Is.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRegistryLoad}
	}
	return []error{ErrRegistryLoad, e.Err}
}

func loadErr(source string, err error, format string, args ...any) error {
	return &LoadError{Source: source, Reason: fmt.Sprintf(format, args...), Err: err}
}
