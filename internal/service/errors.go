package service

import "errors"

// Sentinel errors returned by the engine's public operations. Callers should
// use [errors.Is] to match against these values.
var (
	// ErrInvalidOperation is returned by Enqueue when the operation kind is
	// unknown or the collection name is empty.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnknownOperation is returned by queue status transitions when no
	// entry with the given identifier exists.
	ErrUnknownOperation = errors.New("unknown queue operation")

	// ErrAdapterAlreadyRegistered is returned when a second cache adapter
	// is registered for the same collection.
	ErrAdapterAlreadyRegistered = errors.New("cache adapter already registered for collection")

	// ErrInvalidAdapter is returned when a cache adapter declares no
	// collection name.
	ErrInvalidAdapter = errors.New("invalid cache adapter")
)
