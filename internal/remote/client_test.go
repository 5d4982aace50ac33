package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/errors"
	"bloc-editor/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Client, *bloc.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bloc.RegisterValidators()

	store := bloc.NewMemoryStore()
	router := gin.New()
	router.Use(middleware.ErrorHandler(zerolog.Nop()))
	bloc.NewHandler(store).Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "token"), store
}

func TestClient_RoundTrip(t *testing.T) {
	client, store := newTestServer(t)
	ctx := context.Background()

	id, err := client.CreateBloc(ctx, &bloc.Bloc{
		Position: "a0",
		Content:  `{"type":"paragraph","version":1}`,
		PageID:   "page 1",
		BlocType: "paragraph",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, err := store.GetBlocByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "page 1", stored.PageID)

	status, err := client.UpdateBlocContent(ctx, id, `{"type":"quote","version":1}`, 10)
	require.NoError(t, err)
	assert.Equal(t, bloc.StatusSuccess, status)
	status, err = client.UpdateBlocContent(ctx, id, `{"type":"quote","version":1}`, 11)
	require.NoError(t, err)
	assert.Equal(t, bloc.StatusNoChange, status)

	status, err = client.UpdateBlocPosition(ctx, id, "a1", 12)
	require.NoError(t, err)
	assert.Equal(t, bloc.StatusSuccess, status)

	sum, err := client.GetChecksum(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bloc.Checksum(`{"type":"quote","version":1}`), sum)

	blocs, err := client.GetBlocsByPageID(ctx, "page 1")
	require.NoError(t, err)
	require.Len(t, blocs, 1)
	assert.Equal(t, "a1", blocs[0].Position)
	assert.Equal(t, int64(12), blocs[0].UpdatedAt)

	ok, err := client.UpdateBlocPageID(ctx, id, "page-2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.UpdateBloc(ctx, &bloc.Bloc{ID: id, Position: "a2", Content: "{}", BlocType: "quote", UpdatedAt: 13})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.DeleteBloc(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.DeleteBlocByPageID(ctx, "page-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Errors(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	_, err := client.GetBlocByID(ctx, "missing")
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Bloc not found", apiErr.Message)

	status, err := client.UpdateBlocPosition(ctx, "missing", "not a key", 1)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, bloc.StatusError, status)

	status, err = client.UpdateBlocContent(ctx, "missing", "{}", 1)
	assert.Error(t, err)
	assert.Equal(t, bloc.StatusError, status)
}

func TestClient_SendsToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "abc").GetBlocsByPageID(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)
}
