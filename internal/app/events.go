package app

// Event names for frontend communication.
const (
	// EventStatusChanged carries a full StatusSnapshot whenever any feature
	// slice changes; the frontend re-renders from it instead of polling.
	EventStatusChanged = "status-changed"

	// EventQueryInvalidated names the query key the frontend should refetch.
	EventQueryInvalidated = "query-invalidated"

	// EventHostLost fires when the host connection drops.
	EventHostLost = "host-lost"
)
