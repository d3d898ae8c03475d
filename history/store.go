package history

import "context"

// Store persists conversation records. Implementations are stateless between
// calls and safe for concurrent use.
type Store interface {
	// Save creates or overwrites a record and enforces the per-agent cap,
	// evicting the least recently updated records beyond it.
	Save(ctx context.Context, rec Record) error
	// List returns an agent's records, most recently updated first.
	List(ctx context.Context, agentID string) ([]Record, error)
	// Get retrieves one record by ID.
	Get(ctx context.Context, id string) (Record, error)
	// Delete removes one record. Missing IDs are ignored.
	Delete(ctx context.Context, id string) error
	// Purge removes all of an agent's records.
	Purge(ctx context.Context, agentID string) error
	// Close releases the underlying storage.
	Close() error
}
