package listing

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch produced no listings.
type ErrorKind int

const (
	Transport ErrorKind = iota + 1
	BadStatus
	MissingToken
	// Unchanged is not a failure: the upstream token matched the previous one.
	Unchanged
	MalformedBody
)

func (k ErrorKind) String() string {
	switch k {
	case Transport:
		return "transport"
	case BadStatus:
		return "bad_status"
	case MissingToken:
		return "missing_token"
	case Unchanged:
		return "unchanged"
	case MalformedBody:
		return "malformed_body"
	default:
		return "unknown"
	}
}

type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == BadStatus:
		return fmt.Sprintf("fetch listings: %s: HTTP %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch listings: %s: %v", e.Kind, e.Err)
	default:
		return "fetch listings: " + e.Kind.String()
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the fetch error kind of err, or 0 if err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

func IsUnchanged(err error) bool {
	return KindOf(err) == Unchanged
}
