package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasfiat-brain/internal/search"
)

func opts(slugs ...string) []search.Option {
	out := make([]search.Option, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, search.Option{Slug: s, Name: "name " + s})
	}
	return out
}

func TestMemory_RememberResolve(t *testing.T) {
	m := New(10, time.Minute)
	m.Remember("c1", opts("a", "b", "c", "d", "e"))

	slug, ok := m.Resolve("c1", 2)
	require.True(t, ok)
	assert.Equal(t, "b", slug)

	slug, ok = m.Resolve("c1", 4)
	require.True(t, ok)
	assert.Equal(t, "d", slug)

	_, ok = m.Resolve("c1", 5)
	assert.False(t, ok, "lists are cut to four")
	_, ok = m.Resolve("c1", 0)
	assert.False(t, ok)
	_, ok = m.Resolve("other", 1)
	assert.False(t, ok)

	slug, ok = m.Resolve("c1", 2)
	require.True(t, ok, "resolving does not consume the list")
	assert.Equal(t, "b", slug)
}

func TestMemory_ReplacesAndIgnoresEmpty(t *testing.T) {
	m := New(10, time.Minute)
	m.Remember("c1", opts("a", "b"))
	m.Remember("c1", opts("x"))
	m.Remember("", opts("y"))
	m.Remember("c2", nil)

	slug, ok := m.Resolve("c1", 1)
	require.True(t, ok)
	assert.Equal(t, "x", slug)
	_, ok = m.Resolve("c1", 2)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	m.Forget("c1")
	assert.Equal(t, 0, m.Len())
}

func TestMemory_CapacityEvictsOldest(t *testing.T) {
	m := New(2, time.Minute)
	m.Remember("c1", opts("a"))
	m.Remember("c2", opts("b"))
	m.Remember("c3", opts("c"))

	assert.Equal(t, 2, m.Len())
	_, ok := m.Resolve("c1", 1)
	assert.False(t, ok)
	_, ok = m.Resolve("c3", 1)
	assert.True(t, ok)
}

func TestMemory_TTLExpires(t *testing.T) {
	m := New(10, 30*time.Millisecond)
	m.Remember("c1", opts("a"))

	_, ok := m.Resolve("c1", 1)
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = m.Resolve("c1", 1)
	assert.False(t, ok)
}

func TestMemory_CopiesOptions(t *testing.T) {
	m := New(10, time.Minute)
	shown := opts("a", "b")
	m.Remember("c1", shown)
	shown[0].Slug = "mutated"

	slug, _ := m.Resolve("c1", 1)
	assert.Equal(t, "a", slug)
}

func TestMemory_Concurrent(t *testing.T) {
	m := New(50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i%5)
			for j := 0; j < 100; j++ {
				m.Remember(id, opts("a", "b"))
				m.Resolve(id, 1+j%2)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}
