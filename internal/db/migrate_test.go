package db

import (
	"context"
	"testing"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/tree"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := bloc.NewMemoryStore()

	require.NoError(t, seed(ctx, store, zerolog.Nop()))
	blocs, err := store.GetBlocsByPageID(ctx, WelcomePageID)
	require.NoError(t, err)
	require.Len(t, blocs, 3)

	e := tree.NewEditor()
	for i, b := range blocs {
		n, err := tree.Decode(b.Content)
		require.NoError(t, err)
		assert.Equal(t, b.ID, n.ID())
		assert.Equal(t, b.Position, n.Position())
		if i > 0 {
			assert.Less(t, blocs[i-1].Position, b.Position)
		}
		require.NoError(t, e.Update(func(m *tree.Mutator) error {
			_, err := m.Import(m.Root(), n)
			return err
		}))
	}
	assert.Equal(t, tree.TypeHeading, blocs[0].BlocType)

	// seeding twice is a no-op
	require.NoError(t, seed(ctx, store, zerolog.Nop()))
	blocs, err = store.GetBlocsByPageID(ctx, WelcomePageID)
	require.NoError(t, err)
	assert.Len(t, blocs, 3)
}
