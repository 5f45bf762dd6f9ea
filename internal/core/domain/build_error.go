package domain

import (
	"errors"
	"fmt"
)

// BuildError is a typed transform or rewrite failure for a single file.
// It always matches ErrBuildFailed and additionally matches its cause.
type BuildError struct {
	Title   string
	Message string
	FileLoc string
	Stack   string
	Err     error
}

// NewBuildError creates a BuildError for file with the given cause.
func NewBuildError(title, file string, cause error) *BuildError {
	msg := title
	if cause != nil {
		msg = cause.Error()
	}
	return &BuildError{
		Title:   title,
		Message: msg,
		FileLoc: file,
		Err:     cause,
	}
}

// Error implements error.
func (e *BuildError) Error() string {
	if e.FileLoc == "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Title, e.Message, e.FileLoc)
}

// Unwrap exposes both ErrBuildFailed and the underlying cause.
func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBuildFailed}
	}
	return []error{ErrBuildFailed, e.Err}
}

// AsBuildError returns err as a *BuildError, wrapping it when necessary.
func AsBuildError(err error, file string) *BuildError {
	var be *BuildError
	if errors.As(err, &be) {
		return be
	}
	return NewBuildError("Build failed", file, err)
}
