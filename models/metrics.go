package models

import "time"

// MetricsSnapshot is the read-only observability surface of the sync engine.
// Counters are cumulative since process start; queue gauges reflect the moment
// the snapshot was taken.
type MetricsSnapshot struct {
	TotalQueued    int64 `json:"total_queued"`
	TotalCompleted int64 `json:"total_completed"`
	TotalFailed    int64 `json:"total_failed"`
	TotalRetried   int64 `json:"total_retried"`

	QueueSize     int            `json:"queue_size"`
	PendingByKind map[string]int `json:"pending_by_kind,omitempty"`

	// OrphanedOperations counts updates/deletes deferred because their
	// target temporary identifier never resolved. A non-zero steady value
	// indicates a failed create with dependants still parked in the queue.
	OrphanedOperations int `json:"orphaned_operations"`

	ErrorBreakdown map[string]int64 `json:"error_breakdown,omitempty"`

	Cycles            int64         `json:"cycles"`
	LastCycleAt       time.Time     `json:"last_cycle_at,omitzero"`
	LastCycleDuration time.Duration `json:"last_cycle_duration_ns"`

	Online bool `json:"online"`
}
