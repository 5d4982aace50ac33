package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bloc-editor/auth"
	"bloc-editor/internal/bloc"
	"bloc-editor/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, store bloc.Store, args ...string) (string, error) {
	t.Helper()
	app := buildApp(zerolog.Nop(), func(*cli.Context) bloc.Store { return store })
	var out bytes.Buffer
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.RunContext(context.Background(), append([]string{"blocctl"}, args...))
	return out.String(), err
}

func TestDemo(t *testing.T) {
	store := bloc.NewMemoryStore()

	out, err := run(t, store, "demo", "--page", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "page p1")

	blocs, err := store.GetBlocsByPageID(context.Background(), "p1")
	require.NoError(t, err)
	var texts []string
	for _, b := range blocs {
		texts = append(texts, summary(b.Content))
	}
	// the removal of "second" was undone
	assert.Equal(t, []string{"Demo", "first paragraph", "", "second"}, texts)
}

func TestListGetMove(t *testing.T) {
	ctx := context.Background()
	store := bloc.NewMemoryStore()
	for _, b := range []bloc.Bloc{
		{ID: "a", Position: "a0", PageID: "p1", BlocType: "paragraph", Content: `{"type":"paragraph","version":1,"children":[{"type":"text","version":1,"text":"alpha"}]}`},
		{ID: "b", Position: "a1", PageID: "p1", BlocType: "paragraph", Content: `{"type":"paragraph","version":1}`},
		{ID: "c", Position: "a2", PageID: "p1", BlocType: "paragraph", Content: "garbage"},
	} {
		_, err := store.CreateBloc(ctx, &b)
		require.NoError(t, err)
	}

	out, err := run(t, store, "list", "--page", "p1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "alpha")
	assert.Contains(t, lines[2], "<unreadable>")

	out, err = run(t, store, "get", "b")
	require.NoError(t, err)
	assert.Contains(t, out, `"position": "a1"`)

	out, err = run(t, store, "move", "--page", "p1", "c", "0")
	require.NoError(t, err)
	blocs, err := store.GetBlocsByPageID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "c", blocs[0].ID)
	assert.Equal(t, blocs[0].Position+"\n", out)

	_, err = run(t, store, "move", "--page", "p1", "missing", "0")
	assert.Error(t, err)
	_, err = run(t, store, "move", "--page", "p1", "c")
	assert.Error(t, err)

	out, err = run(t, store, "delete-page", "--page", "p1")
	require.NoError(t, err)
	assert.Equal(t, "deleted\n", out)
	out, err = run(t, store, "delete-page", "--page", "p1")
	require.NoError(t, err)
	assert.Equal(t, "nothing to delete\n", out)
}

func TestToken(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	out, err := run(t, bloc.NewMemoryStore(), "token", "--subject", "ci")
	require.NoError(t, err)

	token, err := auth.VerifyJWT(strings.TrimSpace(out))
	require.NoError(t, err)
	subject, err := auth.GetSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "ci", subject)
}
