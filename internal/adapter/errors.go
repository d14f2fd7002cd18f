package adapter

import "errors"

// Sentinel errors mapped from transport-level failures. Callers match them
// with [errors.Is].
var (
	// ErrUnauthorized is returned when the store rejects the session token.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrUnavailable is returned for network failures and 5xx responses:
	// the store could not process the call right now and a retry may
	// succeed.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrRejected is returned for 4xx responses other than 401: the store
	// understood the call and refused it (validation or business-rule
	// failure).
	ErrRejected = errors.New("remote store rejected request")

	// ErrBadResponse is returned when the store's response cannot be
	// decoded or does not match the submitted batch.
	ErrBadResponse = errors.New("malformed remote store response")
)
