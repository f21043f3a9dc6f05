// Package events defines the ledger lifecycle events emitted to the broker.
package events

import "time"

// RecordSynced is published after the remote ledger acknowledges a record
// and the local copy has been persisted as synced.
type RecordSynced struct {
	Kind     string    `json:"kind"` // "invoice" or "payment"
	RecordID string    `json:"record_id"`
	RemoteID string    `json:"remote_id"`
	SyncedAt time.Time `json:"synced_at"`
}
