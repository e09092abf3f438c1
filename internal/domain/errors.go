package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrTransport indicates the movie catalog could not be reached
	ErrTransport = errors.New("movie catalog is unreachable")

	// ErrPersistence indicates the local cache could not be read or written
	ErrPersistence = errors.New("movie cache failure")

	// ErrAuthFailed indicates the catalog rejected the API key
	ErrAuthFailed = errors.New("catalog API key is invalid")

	// ErrRejected indicates the catalog refused the request for a non-transient reason
	ErrRejected = errors.New("catalog rejected the request")

	// ErrUnknownCategory indicates a category name that is not one of the fixed set
	ErrUnknownCategory = errors.New("unknown category")
)

// TransportError is a network or remote failure while talking to the catalog.
// It is the only error class that is retried automatically.
type TransportError struct {
	Op         string // e.g. "fetch top rated"
	StatusCode int    // HTTP status, 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + ErrTransport.Error()
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// PersistenceError is a failure of the local movie cache
type PersistenceError struct {
	Op       string // e.g. "replace", "read"
	Category Category
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Category, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// IsTransient reports whether err is worth retrying after a backoff
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport)
}
