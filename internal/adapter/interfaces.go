// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer abstractions for communicating
// with the remote record store of the farm-management backend.
//
// The primary abstraction is [RemoteStore], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPRemoteStore]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrUnavailable] for 5xx, [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/MKhiriev/farm-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// RemoteStore defines transport-agnostic communication with the remote record
// store. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
type RemoteStore interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent requests.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or
	// an empty string if no token has been set yet.
	Token() string

	// SubmitBatch sends a bounded group of operations to the store in one
	// network round-trip and returns one result per submitted operation,
	// in order. Items fail independently; a returned error means the whole
	// call failed and the caller must treat every item as failed.
	SubmitBatch(ctx context.Context, ops []models.BatchOperation) ([]models.BatchItemResult, error)

	// Ping probes the store for reachability. A nil return means the
	// engine may consider itself online.
	Ping(ctx context.Context) error
}

// Session supplies the identity of the acting user. The engine uses it to
// scope which queued operations the current session may replay and to stamp
// new operations with their owner.
type Session interface {
	// CurrentUserID returns the identifier of the signed-in user, or an
	// empty string when no session is active.
	CurrentUserID() string
}
