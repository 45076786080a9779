package store

import "time"

// Snapshot is what the dashboard shows for one endpoint.
type Snapshot struct {
	// Name is the endpoint's display name.
	Name string `json:"name"`

	// URL is the polled status URL.
	URL string `json:"url"`

	// Label is the displayed state: error, paused, running or enabled.
	Label string `json:"label"`

	// Flags echoes the decoded status flags. Empty when the poll failed.
	Flags map[string]bool `json:"flags,omitempty"`

	// ResponseTimeMs is the request latency in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is when the poll resolved.
	CheckedAt time.Time `json:"checked_at"`

	// Sequence is the poll cycle number that produced this snapshot.
	Sequence uint64 `json:"sequence"`

	// Error is the poll failure message, nil when the poll succeeded.
	Error *string `json:"error"`
}

// Store defines storage and subscription for label updates.
//
// Implementations must be safe for concurrent access.
type Store interface {
	// Update stores a snapshot keyed by Name and notifies subscribers.
	Update(s Snapshot)

	// Get returns the latest snapshot for name.
	Get(name string) (Snapshot, bool)

	// GetAll returns a copy of all current snapshots sorted by name.
	GetAll() []Snapshot

	// Subscribe returns a buffered channel receiving updates.
	// Caller must call Unsubscribe when done.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes its channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
