package bloc

import (
	"context"
	"testing"
	"time"

	"bloc-editor/redis"

	"github.com/alicebob/miniredis/v2"
	redisLib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts page listings reaching the underlying store.
type countingStore struct {
	*MemoryStore
	listings int
}

func (s *countingStore) GetBlocsByPageID(ctx context.Context, pageID string) ([]Bloc, error) {
	s.listings++
	return s.MemoryStore.GetBlocsByPageID(ctx, pageID)
}

func newTestService(t *testing.T) (*DefaultService, *countingStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisLib.NewClient(&redisLib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &countingStore{MemoryStore: NewMemoryStore()}
	return NewService(store, redis.NewCache(client), time.Minute, zerolog.Nop()), store
}

func TestService_ListingIsCached(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateBloc(ctx, &Bloc{Position: "a0", Content: "x", PageID: "p"})
	require.NoError(t, err)

	first, err := svc.GetBlocsByPageID(ctx, "p")
	require.NoError(t, err)
	second, err := svc.GetBlocsByPageID(ctx, "p")
	require.NoError(t, err)

	assert.Equal(t, 1, store.listings)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestService_WritesInvalidatePage(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	id, _ := svc.CreateBloc(ctx, &Bloc{Position: "a0", Content: "x", PageID: "p"})

	list := func(page string) []Bloc {
		blocs, err := svc.GetBlocsByPageID(ctx, page)
		require.NoError(t, err)
		return blocs
	}
	list("p")

	status, err := svc.UpdateBlocContent(ctx, id, "y", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, "y", list("p")[0].Content)

	status, _ = svc.UpdateBlocContent(ctx, id, "y", 3)
	assert.Equal(t, StatusNoChange, status)
	calls := store.listings
	list("p")
	assert.Equal(t, calls, store.listings)

	_, err = svc.UpdateBlocPosition(ctx, id, "a5", 4)
	require.NoError(t, err)
	assert.Equal(t, "a5", list("p")[0].Position)

	ok, err := svc.UpdateBlocPageID(ctx, id, "q")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, list("p"))
	assert.Len(t, list("q"), 1)

	ok, _ = svc.DeleteBloc(ctx, id)
	assert.True(t, ok)
	assert.Empty(t, list("q"))
}

func TestService_DeletePage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.CreateBloc(ctx, &Bloc{Position: "a0", Content: "x", PageID: "p"})
	svc.CreateBloc(ctx, &Bloc{Position: "a1", Content: "y", PageID: "p"})
	blocs, _ := svc.GetBlocsByPageID(ctx, "p")
	require.Len(t, blocs, 2)

	ok, err := svc.DeleteBlocByPageID(ctx, "p")
	require.NoError(t, err)
	assert.True(t, ok)
	blocs, _ = svc.GetBlocsByPageID(ctx, "p")
	assert.Empty(t, blocs)
}

func TestService_WithoutRedis(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	svc := NewService(store, redis.NewCache(nil), time.Minute, zerolog.Nop())
	ctx := context.Background()
	svc.CreateBloc(ctx, &Bloc{Position: "a0", Content: "x", PageID: "p"})

	svc.GetBlocsByPageID(ctx, "p")
	svc.GetBlocsByPageID(ctx, "p")
	assert.Equal(t, 2, store.listings)
}
