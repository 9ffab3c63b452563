package sources

import (
	"errors"
	"fmt"
)

// Reasons carried by ResolutionError
var (
	ErrNoVersion  = errors.New("no version found")
	ErrNoSnapshot = errors.New("no binary snapshot found")
	ErrNoAsset    = errors.New("no asset found")
	ErrNoArtifact = errors.New("no artifact found")
	ErrNoBuild    = errors.New("no build found")
	ErrNoDownload = errors.New("no build download found")
)

// ResolutionError is returned when a remote answered with a well-formed
// response that contains nothing matching the item
type ResolutionError struct {
	Resolver string
	Source   string
	Reason   error
}

// Error returns the error message
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s resolver: %s: %v", e.Resolver, e.Source, e.Reason)
}

// Unwrap returns the reason so callers can match it with errors.Is
func (e *ResolutionError) Unwrap() error {
	return e.Reason
}

func newResolutionError(resolver, source string, reason error) error {
	return &ResolutionError{Resolver: resolver, Source: source, Reason: reason}
}

// UnknownRepositoryTypeError is returned for a repository type no resolver serves
type UnknownRepositoryTypeError struct {
	Type string
}

// Error returns the error message
func (e *UnknownRepositoryTypeError) Error() string {
	return fmt.Sprintf("unsupported repository type: %q", e.Type)
}
