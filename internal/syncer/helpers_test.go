package syncer

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/tree"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testPage = "page-1"

// recordingStore wraps a MemoryStore, logging each write and optionally
// failing calls by method name.
type recordingStore struct {
	*bloc.MemoryStore

	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: bloc.NewMemoryStore(), fail: make(map[string]error)}
}

func (s *recordingStore) record(method, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method+" "+id)
	return s.fail[method]
}

func (s *recordingStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

func (s *recordingStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *recordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *recordingStore) CreateBloc(ctx context.Context, b *bloc.Bloc) (string, error) {
	if err := s.record("CreateBloc", b.ID); err != nil {
		return "", err
	}
	return s.MemoryStore.CreateBloc(ctx, b)
}

func (s *recordingStore) UpdateBlocContent(ctx context.Context, id, content string, updatedAt int64) (bloc.Status, error) {
	if err := s.record("UpdateBlocContent", id); err != nil {
		return bloc.StatusError, err
	}
	return s.MemoryStore.UpdateBlocContent(ctx, id, content, updatedAt)
}

func (s *recordingStore) UpdateBlocPosition(ctx context.Context, id, position string, updatedAt int64) (bloc.Status, error) {
	if err := s.record("UpdateBlocPosition", id); err != nil {
		return bloc.StatusError, err
	}
	return s.MemoryStore.UpdateBlocPosition(ctx, id, position, updatedAt)
}

func (s *recordingStore) DeleteBloc(ctx context.Context, id string) (bool, error) {
	if err := s.record("DeleteBloc", id); err != nil {
		return false, err
	}
	return s.MemoryStore.DeleteBloc(ctx, id)
}

type fixture struct {
	editor *tree.Editor
	store  *recordingStore
	engine *Engine
	logs   *syncBuffer
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of the
// worker goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		editor: tree.NewEditor(),
		store:  newRecordingStore(),
		logs:   &syncBuffer{},
	}
	n := 0
	o := Options{
		PageID: testPage,
		Store:  f.store,
		Logger: zerolog.New(f.logs).Level(zerolog.DebugLevel),
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		NewID: func() string {
			n++
			return fmt.Sprintf("bloc-%02d", n)
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.engine = NewEngine(f.editor, o)
	f.engine.Attach()
	t.Cleanup(func() { f.engine.Close(context.Background()) })
	return f
}

func (f *fixture) appendParagraph(t *testing.T, text string) tree.NodeKey {
	t.Helper()
	var key tree.NodeKey
	require.NoError(t, f.editor.Update(func(m *tree.Mutator) error {
		key = m.CreateParagraph()
		if err := m.Append(m.Root(), key); err != nil {
			return err
		}
		return m.Append(key, m.CreateText(text))
	}))
	f.engine.Wait()
	return key
}

func (f *fixture) setText(t *testing.T, key tree.NodeKey, text string) {
	t.Helper()
	leaf := f.editor.State().Children(key)[0]
	require.NoError(t, f.editor.Update(func(m *tree.Mutator) error {
		return m.SetText(leaf, text)
	}))
	f.engine.Wait()
}

func (f *fixture) flush(t *testing.T) int {
	t.Helper()
	n := f.engine.Flush(context.Background())
	f.engine.Wait()
	return n
}

func (f *fixture) blocs(t *testing.T) []bloc.Bloc {
	t.Helper()
	blocs, err := f.store.GetBlocsByPageID(context.Background(), testPage)
	require.NoError(t, err)
	return blocs
}

// requireMirrored checks that the stored blocs, ordered by position, are the
// top-level nodes of the editor in document order.
func (f *fixture) requireMirrored(t *testing.T) {
	t.Helper()
	state := f.editor.State()
	top := state.TopLevel()
	blocs := f.blocs(t)
	require.Len(t, blocs, len(top))
	require.Equal(t, len(top), f.engine.Bridge().Len())
	for i, key := range top {
		entry, ok := f.engine.Bridge().Get(key)
		require.True(t, ok, "node %s has no bloc", key)
		require.Equal(t, entry.ID, blocs[i].ID)
		require.Equal(t, entry.Position, blocs[i].Position)

		n, err := tree.Decode(blocs[i].Content)
		require.NoError(t, err)
		// content written by the engine is stamped; loaded content may not be
		if n.ID() != "" {
			require.Equal(t, entry.ID, n.ID())
		}
	}
}

// storedText returns the text of the first text child stored for id.
func storedText(t *testing.T, s bloc.Store, id string) string {
	t.Helper()
	b, err := s.GetBlocByID(context.Background(), id)
	require.NoError(t, err)
	n, err := tree.Decode(b.Content)
	require.NoError(t, err)
	require.NotEmpty(t, n.Children)
	return n.Children[0].Text
}
