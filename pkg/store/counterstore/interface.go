package counterstore

import (
	"context"
	"time"
)

// Record is the count observed for a single key.
type Record struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// CounterStore keeps a durable, monotonically increasing count per key.
type CounterStore interface {
	// Increment atomically adds one to the count for key, creating it with a
	// value of 1 if absent, and returns the new count. Concurrent increments
	// of the same key must all apply.
	Increment(ctx context.Context, key string) (uint64, error)
	// Get returns the current count for key, or store.ErrNotFound.
	Get(ctx context.Context, key string) (uint64, error)
	// List returns every record in the store, ordered by key.
	List(ctx context.Context) ([]Record, error)
}

// Snapshot is a point in time listing of a CounterStore.
type Snapshot struct {
	Taken   time.Time `json:"taken"`
	Records []Record  `json:"records"`
}

// TakeSnapshot lists all records in the store. Increments that happen while
// the listing is in progress may or may not be included.
func TakeSnapshot(ctx context.Context, s CounterStore) (Snapshot, error) {
	taken := time.Now().UTC()
	records, err := s.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if records == nil {
		records = []Record{}
	}
	return Snapshot{Taken: taken, Records: records}, nil
}
