package models

import "time"

// ChangeRecord is one entry of the local change history: a snapshot of a
// single mutation made on this device. Records are append-only; the tracker
// prunes them oldest-first when the ring buffer overflows or entries age out.
type ChangeRecord struct {
	EntityID   string        `json:"entity_id"`
	Collection string        `json:"collection"`
	Operation  OperationKind `json:"operation"`
	OldData    Value         `json:"old_data"`
	NewData    Value         `json:"new_data"`
	Timestamp  time.Time     `json:"timestamp"`
	UserID     string        `json:"user_id,omitempty"`
	Context    string        `json:"context,omitempty"`
}

// ConflictStrategy names the path taken to resolve a conflict.
type ConflictStrategy string

const (
	StrategyAutoMerge  ConflictStrategy = "auto-merge"
	StrategyLatestWins ConflictStrategy = "latest-wins"
	StrategyManual     ConflictStrategy = "manual"
)

// ConflictRecord documents one resolved divergence between a local and a
// remote copy of a record. Appended to its own log, never mutated.
type ConflictRecord struct {
	EntityID   string           `json:"entity_id"`
	Collection string           `json:"collection"`
	LocalData  Value            `json:"local_data"`
	RemoteData Value            `json:"remote_data"`
	History    []ChangeRecord   `json:"history,omitempty"`
	Resolution Value            `json:"resolution"`
	Strategy   ConflictStrategy `json:"strategy"`
	ResolvedAt time.Time        `json:"resolved_at"`
}
