package models

// BatchAction is the wire-level action name of a batch item.
type BatchAction string

const (
	ActionCreate BatchAction = "create"
	ActionUpdate BatchAction = "update"
	ActionDelete BatchAction = "delete"
)

// BatchOperation is one item of a batched submission to the remote store.
type BatchOperation struct {
	Collection string      `json:"collection"`
	Action     BatchAction `json:"action"`
	ID         string      `json:"id,omitempty"`
	Payload    Value       `json:"payload,omitempty"`
}

// BatchItemResult is the remote store's per-item outcome of a batched
// submission. Items fail independently; a transport-level failure of the whole
// call is reported by the adapter as an error, not through results.
type BatchItemResult struct {
	OK bool `json:"ok"`

	// ID is the identifier of the affected record; for creates, the real
	// identifier the store assigned.
	ID string `json:"id,omitempty"`

	// Record is the authoritative post-mutation record (creates and
	// updates).
	Record Value `json:"record,omitempty"`

	Error string `json:"error,omitempty"`
}

// BatchRequest is the body of a batched submission call.
type BatchRequest struct {
	Operations []BatchOperation `json:"operations"`
	Length     int              `json:"length"`
}

// BatchResponse is the body of a batched submission response.
type BatchResponse struct {
	Results []BatchItemResult `json:"results"`
}

// CreatedItem reports one create that reached the remote store during a
// cycle: the placeholder it was queued under and the record the store
// returned.
type CreatedItem struct {
	Collection string `json:"collection"`
	TempID     TempID `json:"temp_id"`
	RealID     string `json:"real_id"`
	Record     Value  `json:"record"`
}

// UpdatedItem reports one update applied during a cycle.
type UpdatedItem struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Patch      Value  `json:"patch"`
}

// DeletedItem reports one delete applied during a cycle.
type DeletedItem struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// SyncManifest summarises one processing cycle for fan-out to the per-
// collection caches. An all-empty manifest is returned when a cycle finds no
// eligible work or is skipped because another cycle is already running.
type SyncManifest struct {
	CreatedItems []CreatedItem `json:"created_items"`
	UpdatedItems []UpdatedItem `json:"updated_items"`
	DeletedItems []DeletedItem `json:"deleted_items"`
}

// Empty reports whether the manifest carries no outcomes.
func (m SyncManifest) Empty() bool {
	return len(m.CreatedItems) == 0 && len(m.UpdatedItems) == 0 && len(m.DeletedItems) == 0
}
