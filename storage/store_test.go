package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{}
	for _, b := range []string{BackendMemory, BackendSQLite, BackendBolt} {
		s, err := Open(b, t.TempDir())
		require.NoError(t, err, b)
		t.Cleanup(func() { s.Close() })
		out[b] = s
	}
	return out
}

var testKey = Key{
	Kind:            KindMixResult,
	ElectionEventID: "0b88257ec32142bb8ee0ed1bb70530fa",
	BallotBoxID:     "d7f8a1ab5b7b4d5ab14c4f04e6f5c1a1",
	NodeID:          2,
}

func TestGetMissing(t *testing.T) {
	for name, s := range backends(t) {
		_, err := s.Get(context.Background(), testKey)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestPutIfAbsentKeepsFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		rec, created, err := PutIfAbsent(ctx, s, testKey, []byte("first"))
		require.NoError(t, err, name)
		assert.True(t, created, name)
		assert.Equal(t, 1, rec.Version, name)

		rec, created, err = PutIfAbsent(ctx, s, testKey, []byte("second"))
		require.NoError(t, err, name)
		assert.False(t, created, name)
		assert.Equal(t, []byte("first"), rec.Data, name)

		got, err := s.Get(ctx, testKey)
		require.NoError(t, err, name)
		assert.Equal(t, []byte("first"), got.Data, name)
		assert.Equal(t, 1, got.Version, name)

		// a different node is a different slot
		other := testKey
		other.NodeID = 3
		_, err = s.Get(ctx, other)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestCompareAndSwapVersions(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		_, err := s.CompareAndSwap(ctx, testKey, 1, []byte("x"))
		assert.ErrorIs(t, err, ErrVersionConflict, name)

		rec, err := s.CompareAndSwap(ctx, testKey, 0, []byte("a"))
		require.NoError(t, err, name)
		assert.Equal(t, 1, rec.Version, name)

		_, err = s.CompareAndSwap(ctx, testKey, 0, []byte("b"))
		assert.ErrorIs(t, err, ErrVersionConflict, name)

		rec, err = s.CompareAndSwap(ctx, testKey, 1, []byte("c"))
		require.NoError(t, err, name)
		assert.Equal(t, 2, rec.Version, name)

		got, err := s.Get(ctx, testKey)
		require.NoError(t, err, name)
		assert.Equal(t, []byte("c"), got.Data, name)
	}
}

func TestConcurrentFirstWriteHasOneWinner(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		const writers = 16
		var wg sync.WaitGroup
		results := make([]*Record, writers)
		created := make([]bool, writers)
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], created[i], errs[i] = PutIfAbsent(ctx, s, testKey, []byte(fmt.Sprintf("writer-%d", i)))
			}(i)
		}
		wg.Wait()

		winners := 0
		for i := 0; i < writers; i++ {
			require.NoError(t, errs[i], name)
			if created[i] {
				winners++
			}
			assert.Equal(t, results[0].Data, results[i].Data, name)
		}
		assert.Equal(t, 1, winners, name)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("postgres", t.TempDir())
	assert.Error(t, err)
}
