// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// OperationKind classifies a queued mutation.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// Valid reports whether k is a known kind.
func (k OperationKind) Valid() bool {
	switch k {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Priority returns the replay tie-break weight of the kind. Deletes outrank
// creates, creates outrank updates. Ordering within a kind is always by
// enqueue time; priority is only a hint.
func (k OperationKind) Priority() int {
	switch k {
	case OpDelete:
		return 3
	case OpCreate:
		return 2
	default:
		return 1
	}
}

// OperationStatus is the lifecycle state of a queued operation.
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusRetrying  OperationStatus = "retrying"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
)

// Terminal reports whether the status ends the operation's lifecycle.
// Terminal operations are purged from the queue at the end of the processing
// cycle that produced them.
func (s OperationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Operation is a pending local mutation awaiting replay against the remote
// store.
type Operation struct {
	// OpID uniquely identifies the queue entry itself (not the target
	// record); used for persistence and deferred status transitions.
	OpID string `json:"op_id"`

	// Kind is the mutation type.
	Kind OperationKind `json:"kind"`

	// Collection names the target record set.
	Collection string `json:"collection"`

	// TargetID identifies the record the operation applies to. For a create
	// this equals TempID until the remote store assigns a real identifier.
	// For updates and deletes it may be a temporary identifier referring to
	// a not-yet-synced create enqueued earlier.
	TargetID string `json:"target_id"`

	// TempID is set only for creates: the placeholder issued at enqueue
	// time, resolved to a real identifier on successful submission.
	TempID TempID `json:"temp_id,omitempty"`

	// Payload carries the record fields, enriched at enqueue time with
	// tenant, schema version and acting-user context.
	Payload Value `json:"payload"`

	Status     OperationStatus `json:"status"`
	RetryCount int             `json:"retry_count"`
	Priority   int             `json:"priority"`

	// CreatedAt is the enqueue timestamp; the authoritative ordering key
	// among operations of the same kind.
	CreatedAt time.Time `json:"created_at"`

	// UserID scopes which session may replay the operation. Empty means
	// the operation was enqueued without an active session and any session
	// may replay it.
	UserID string `json:"user_id,omitempty"`
}

// Eligible reports whether the operation may be drained for replay by the
// given session.
func (o Operation) Eligible(currentUserID string) bool {
	if o.Status != StatusPending && o.Status != StatusRetrying {
		return false
	}
	if currentUserID == "" {
		// A sessionless drain covers ownerless operations only; owned
		// operations wait for their session to come back.
		return o.UserID == ""
	}
	return o.UserID == "" || o.UserID == currentUserID
}
