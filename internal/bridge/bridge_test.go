package bridge

import (
	"sync"
	"testing"

	"bloc-editor/internal/tree"

	"github.com/stretchr/testify/assert"
)

func TestBridge_SetGetDelete(t *testing.T) {
	b := New()
	b.Set("1", "id-1", "a0")

	e, ok := b.Get("1")
	assert.True(t, ok)
	assert.Equal(t, Entry{ID: "id-1", Position: "a0"}, e)
	k, ok := b.KeyOf("id-1")
	assert.True(t, ok)
	assert.Equal(t, tree.NodeKey("1"), k)

	b.Set("1", "id-1", "a1")
	e, _ = b.Get("1")
	assert.Equal(t, "a1", e.Position)
	assert.Equal(t, 1, b.Len())

	b.Delete("1")
	_, ok = b.Get("1")
	assert.False(t, ok)
	_, ok = b.KeyOf("id-1")
	assert.False(t, ok)
	b.Delete("1")
	assert.Zero(t, b.Len())
}

func TestBridge_IDBoundToOneKey(t *testing.T) {
	b := New()
	b.Set("1", "id-1", "a0")
	b.Set("2", "id-1", "a1")

	_, ok := b.Get("1")
	assert.False(t, ok)
	k, _ := b.KeyOf("id-1")
	assert.Equal(t, tree.NodeKey("2"), k)

	b.Set("2", "id-2", "a1")
	_, ok = b.KeyOf("id-1")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len())
}

func TestBridge_KeysAndReset(t *testing.T) {
	b := New()
	b.Set("1", "id-1", "a0")
	b.Set("2", "id-2", "a1")
	assert.ElementsMatch(t, []tree.NodeKey{"1", "2"}, b.Keys())

	b.Reset()
	assert.Empty(t, b.Keys())
	_, ok := b.KeyOf("id-2")
	assert.False(t, ok)
}

func TestBridge_ConcurrentAccess(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := tree.NodeKey(rune('a' + i))
			for j := 0; j < 100; j++ {
				b.Set(key, string(key), "a0")
				b.Get(key)
				b.Keys()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, b.Len())
}
