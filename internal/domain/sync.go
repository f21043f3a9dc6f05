package domain

import "time"

// SyncState marks whether the remote ledger has acknowledged a record.
// The zero value means the record has never been synced (or a previous
// attempt failed and it remains eligible for the next pass).
type SyncState string

// SyncStateSynced is the only non-zero sync state.
const SyncStateSynced SyncState = "synced"

// SyncError is one entry in a record's append-only sync failure trail.
type SyncError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RemoteSync is the per-record synchronization envelope. Errors only ever
// grows; a failed attempt never resets State or any application field.
type RemoteSync struct {
	RemoteID     string      `json:"remote_id,omitempty"`
	State        SyncState   `json:"state,omitempty"`
	LastSyncedAt *time.Time  `json:"last_synced_at,omitempty"`
	Errors       []SyncError `json:"errors"`
}

// Synced reports whether the remote ledger has acknowledged this record.
func (rs *RemoteSync) Synced() bool { return rs.State == SyncStateSynced }

// MarkSynced records a successful remote acknowledgement.
func (rs *RemoteSync) MarkSynced(remoteID string, at time.Time) {
	rs.RemoteID = remoteID
	rs.State = SyncStateSynced
	rs.LastSyncedAt = &at
}

// RecordFailure appends one entry to the error trail.
func (rs *RemoteSync) RecordFailure(code, message string, at time.Time) {
	if code == "" {
		code = "UNKNOWN"
	}
	rs.Errors = append(rs.Errors, SyncError{Code: code, Message: message, Timestamp: at})
}

// RemoteAck is the remote ledger's acknowledgement of a pushed record.
type RemoteAck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// BatchResult tallies one sync pass over a single record kind.
type BatchResult struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// SyncReport is the outcome of a full sync over both record kinds.
type SyncReport struct {
	Invoices BatchResult `json:"invoices"`
	Payments BatchResult `json:"payments"`
}

// SyncStats counts local records by sync state for one record kind.
type SyncStats struct {
	Synced  int `json:"synced"`
	Pending int `json:"pending"`
}

// RemoteStatus combines the remote availability probe with local sync
// statistics. Read-only observability data.
type RemoteStatus struct {
	Available bool      `json:"available"`
	Invoices  SyncStats `json:"invoices"`
	Payments  SyncStats `json:"payments"`
}
