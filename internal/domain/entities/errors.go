package entities

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks errors that must halt the whole run before any repository is processed.
var ErrConfiguration = errors.New("configuration error")

// ErrBranchExists is returned by providers when the branch to create is already present.
var ErrBranchExists = errors.New("branch already exists")

// ErrRepositoryNotFound is returned by providers when a repository named in the index
// does not exist (deleted, renamed, or not visible to the token).
var ErrRepositoryNotFound = errors.New("repository not found")

// TransientRemoteError wraps a hosting-service failure that is worth retrying
// (rate limits, server errors, network timeouts).
type TransientRemoteError struct {
	Err error
}

// NewTransientRemoteError wraps err as a transient failure. A nil err stays nil.
func NewTransientRemoteError(err error) error {
	if err == nil {
		return nil
	}
	return &TransientRemoteError{Err: err}
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("transient remote error: %v", e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }

// IsTransient reports whether err, or any error it wraps, is a TransientRemoteError.
func IsTransient(err error) bool {
	var transient *TransientRemoteError
	return errors.As(err, &transient)
}
