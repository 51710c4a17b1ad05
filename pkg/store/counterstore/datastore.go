package counterstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/multiformats/go-multibase"
	"github.com/storacha/hitcounter/pkg/store"
)

// DsCounterStore is a CounterStore backed by an IPFS datastore. Datastores
// have no atomic increment, so increments are serialised in process. It must
// be the only writer to the datastore it wraps.
type DsCounterStore struct {
	mu   sync.Mutex
	data datastore.Datastore
}

var _ CounterStore = (*DsCounterStore)(nil)

// NewDsCounterStore creates a [CounterStore] backed by an IPFS datastore.
func NewDsCounterStore(ds datastore.Datastore) (*DsCounterStore, error) {
	if ds == nil {
		return nil, errors.New("missing datastore")
	}
	return &DsCounterStore{data: ds}, nil
}

func (d *DsCounterStore) Increment(ctx context.Context, key string) (uint64, error) {
	k, err := encodeKey(key)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	count, err := d.get(ctx, k)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	count++

	err = d.data.Put(ctx, k, encodeCount(count))
	if err != nil {
		return 0, fmt.Errorf("writing to datastore: %w", err)
	}
	return count, nil
}

func (d *DsCounterStore) Get(ctx context.Context, key string) (uint64, error) {
	k, err := encodeKey(key)
	if err != nil {
		return 0, err
	}
	return d.get(ctx, k)
}

func (d *DsCounterStore) get(ctx context.Context, k datastore.Key) (uint64, error) {
	b, err := d.data.Get(ctx, k)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("reading from datastore: %w", err)
	}
	return decodeCount(b)
}

func (d *DsCounterStore) List(ctx context.Context) ([]Record, error) {
	results, err := d.data.Query(ctx, query.Query{})
	if err != nil {
		return nil, fmt.Errorf("querying datastore: %w", err)
	}
	defer results.Close()

	var records []Record
	for entry := range results.Next() {
		if entry.Error != nil {
			return nil, fmt.Errorf("iterating query results: %w", entry.Error)
		}
		key, err := decodeKey(entry.Key)
		if err != nil {
			return nil, err
		}
		count, err := decodeCount(entry.Value)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{Key: key, Count: count})
	}
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Key, b.Key)
	})
	return records, nil
}

// Counter keys are paths, which datastore keys would split and clean, so they
// are stored multibase encoded.
func encodeKey(key string) (datastore.Key, error) {
	s, err := multibase.Encode(multibase.Base32, []byte(key))
	if err != nil {
		return datastore.Key{}, fmt.Errorf("encoding key: %w", err)
	}
	return datastore.NewKey(s), nil
}

func decodeKey(k string) (string, error) {
	_, b, err := multibase.Decode(strings.TrimPrefix(k, "/"))
	if err != nil {
		return "", fmt.Errorf("decoding key %s: %w", k, err)
	}
	return string(b), nil
}

func encodeCount(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func decodeCount(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("decoding count: expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
