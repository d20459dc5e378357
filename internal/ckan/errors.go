package ckan

import (
	"encoding/json"
	"errors"
)

// ErrorKind classifies a failed action call. The set is closed: callers
// branch on kinds instead of re-parsing error payloads.
type ErrorKind int

const (
	// KindOther is any remote failure without a more specific class.
	KindOther ErrorKind = iota
	// KindPermissionDenied is an authorization rejection (HTTP 403).
	KindPermissionDenied
	// KindNotFound is CKAN's "Not Found Error" payload type.
	KindNotFound
	// KindValidation is CKAN's "Validation Error" payload type.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "other"
	}
}

// APIError is a classified failure response from one action call.
// Transport and decoding problems are never APIErrors; only a response
// CKAN actually produced becomes one.
type APIError struct {
	Action     string
	StatusCode int
	Kind       ErrorKind
	// Detail is the remote "error" object when the body decoded as JSON,
	// nil otherwise.
	Detail json.RawMessage

	message string
}

func (e *APIError) Error() string {
	return e.message
}

// IsNotFound reports whether err is an action failure carrying CKAN's
// not-found payload type.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// IsPermissionDenied reports whether err is an authorization rejection.
func IsPermissionDenied(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindPermissionDenied
}
