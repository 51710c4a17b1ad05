package counterstore

import (
	"context"
	"sync"
	"testing"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"
	"github.com/storacha/hitcounter/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDsCounterStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first increment creates the record", func(t *testing.T) {
		s, err := NewDsCounterStore(datastore.NewMapDatastore())
		require.NoError(t, err)

		_, err = s.Get(ctx, "/hello")
		require.ErrorIs(t, err, store.ErrNotFound)

		n, err := s.Increment(ctx, "/hello")
		require.NoError(t, err)
		require.Equal(t, uint64(1), n)

		n, err = s.Get(ctx, "/hello")
		require.NoError(t, err)
		require.Equal(t, uint64(1), n)
	})

	t.Run("sequential increments", func(t *testing.T) {
		s, err := NewDsCounterStore(datastore.NewMapDatastore())
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			n, err := s.Increment(ctx, "/hello")
			require.NoError(t, err)
			require.Equal(t, uint64(i), n)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		s, err := NewDsCounterStore(datastore.NewMapDatastore())
		require.NoError(t, err)

		for _, k := range []string{"/", "/a", "/a/b", "/a", "/"} {
			_, err := s.Increment(ctx, k)
			require.NoError(t, err)
		}

		records, err := s.List(ctx)
		require.NoError(t, err)
		require.Equal(t, []Record{
			{Key: "/", Count: 2},
			{Key: "/a", Count: 2},
			{Key: "/a/b", Count: 1},
		}, records)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		s, err := NewDsCounterStore(dssync.MutexWrap(datastore.NewMapDatastore()))
		require.NoError(t, err)

		const n = 100
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Increment(ctx, "/x")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := s.Get(ctx, "/x")
		require.NoError(t, err)
		require.Equal(t, uint64(n), count)
	})

	t.Run("empty list", func(t *testing.T) {
		s, err := NewDsCounterStore(datastore.NewMapDatastore())
		require.NoError(t, err)

		records, err := s.List(ctx)
		require.NoError(t, err)
		require.Empty(t, records)
	})

	t.Run("leveldb persists counts", func(t *testing.T) {
		dir := t.TempDir()
		ds, err := leveldb.NewDatastore(dir, nil)
		require.NoError(t, err)

		s, err := NewDsCounterStore(ds)
		require.NoError(t, err)
		_, err = s.Increment(ctx, "/hello")
		require.NoError(t, err)
		_, err = s.Increment(ctx, "/hello")
		require.NoError(t, err)
		require.NoError(t, ds.Close())

		ds, err = leveldb.NewDatastore(dir, nil)
		require.NoError(t, err)
		t.Cleanup(func() { ds.Close() })

		s, err = NewDsCounterStore(ds)
		require.NoError(t, err)
		n, err := s.Increment(ctx, "/hello")
		require.NoError(t, err)
		require.Equal(t, uint64(3), n)
	})

	t.Run("nil datastore", func(t *testing.T) {
		_, err := NewDsCounterStore(nil)
		require.Error(t, err)
	})
}

func TestTakeSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := NewDsCounterStore(datastore.NewMapDatastore())
	require.NoError(t, err)

	snap, err := TakeSnapshot(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, snap.Records)
	require.Empty(t, snap.Records)

	_, err = s.Increment(ctx, "/hello")
	require.NoError(t, err)

	snap, err = TakeSnapshot(ctx, s)
	require.NoError(t, err)
	require.False(t, snap.Taken.IsZero())
	require.Equal(t, []Record{{Key: "/hello", Count: 1}}, snap.Records)
}
