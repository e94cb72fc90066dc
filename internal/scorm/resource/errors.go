package resource

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrInvalidEncoding  = errors.New("content is not valid UTF-8")
	ErrNoObjectStore    = errors.New("object storage is not configured")
	ErrTooLarge         = errors.New("content exceeds the read limit")
)

// FetchError reports a failed read of a package file.
type FetchError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindLocal:
		return fmt.Sprintf("read manifest from local path %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("fetch manifest from %s: %v", e.Path, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
