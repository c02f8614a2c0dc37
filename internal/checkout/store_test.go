package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/ucp-agent-poc/server/internal/core/error"
)

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, errx.CodeNotFound, errx.CodeOf(err))
}

func TestMemoryStore_PutGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newTestSession()))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)

	// Mutating the returned session must not leak into the store.
	got.LineItems[0].SetQuantity(99)
	got.Status = StatusCompleted

	again, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.LineItems[0].Quantity)
	assert.Equal(t, StatusReadyForComplete, again.Status)
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, newTestSession()))

	updated, err := store.Update(ctx, "sess-1", func(s *Session) error {
		s.Status = StatusCompleted
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	stored, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestMemoryStore_UpdateErrorDiscardsChanges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, newTestSession()))

	_, err := store.Update(ctx, "sess-1", func(s *Session) error {
		s.Status = StatusCompleted
		return errInvalidDiscountCode("BOGUS")
	})

	require.Error(t, err)
	stored, getErr := store.Get(ctx, "sess-1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusReadyForComplete, stored.Status)
}

func TestMemoryStore_UpdateNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Update(context.Background(), "missing", func(s *Session) error { return nil })

	require.Error(t, err)
	assert.Equal(t, errx.CodeNotFound, errx.CodeOf(err))
}

func TestMemoryStore_ConcurrentUpdatesSerialize(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := newTestSession()
	session.LineItems[0].SetQuantity(0)
	require.NoError(t, store.Put(ctx, session))

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "sess-1", func(s *Session) error {
				s.LineItems[0].SetQuantity(s.LineItems[0].Quantity + 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, workers, stored.LineItems[0].Quantity)
}
