package xapi

import (
	"errors"
	"fmt"
)

// ErrEmptyResult marks a valid no-data outcome: HTTP 204, an empty body, or
// an empty collection. Callers must distinguish it from real failures — the
// endpoint worked, it just has nothing to export.
var ErrEmptyResult = errors.New("endpoint returned no data")

// AuthError is a failed client-credentials exchange.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token request failed: %v", e.Err)
	}
	return fmt.Sprintf("token request failed: HTTP %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError is a connection-level failure: DNS, TLS, timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ForbiddenError is an HTTP 403, which on a PBX usually means the caller's
// address is not on the allow list.
type ForbiddenError struct {
	Endpoint string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access denied (403) for %s: the server likely does not allow-list this address; check the PBX access control settings", e.Endpoint)
}

// HTTPError is any other non-200 response.
type HTTPError struct {
	StatusCode int
	Endpoint   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed: HTTP %d (endpoint: %s)", e.StatusCode, e.Endpoint)
}

// MalformedResponseError is a 200 response whose body does not match any
// recognized shape.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s", e.Reason)
}
