package memory

import "context"

// LongTermStore is an optional, write-on-append durable store keyed by
// entry id; appending an id that is already stored replaces that entry.
// Implementations: jsonstore (JSON snapshot file) and sqlitestore
// (modernc.org/sqlite).
type LongTermStore interface {
	// Append durably records e. Implementations must tolerate repeated
	// Append calls for the same entry id (last write wins) since a
	// Message/ExecutionRecord may be stored in short-term before the
	// long-term write completes.
	Append(ctx context.Context, e Entry) error

	// All returns every stored entry, oldest first.
	All(ctx context.Context) ([]Entry, error)

	// Close releases underlying resources (file handles, connections).
	Close() error
}
