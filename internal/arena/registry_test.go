package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(func() { _ = r.Close() })

	a, err := r.GetOrCreate("index", Config{PoolSize: 1})
	require.NoError(t, err)
	defer a.Release()

	b, err := r.GetOrCreate("index", Config{PoolSize: 64 << 20})
	require.NoError(t, err)
	defer b.Release()

	assert.Same(t, a, b)
	assert.Equal(t, uint64(Granularity), b.Capacity(), "existing arena is returned unchanged")
	assert.Equal(t, int64(3), a.Refs())

	_, err = r.GetOrCreate("broken", Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(func() { _ = r.Close() })

	for _, name := range []string{"c", "a", "b"} {
		a, err := r.GetOrCreate(name, Config{PoolSize: 1})
		require.NoError(t, err)
		require.NoError(t, a.Release())
	}

	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	assert.Equal(t, 3, r.Len())

	a, ok := r.Get("b")
	require.True(t, ok)
	require.NoError(t, a.Release())

	_, ok = r.Get("z")
	assert.False(t, ok)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()

	a, err := r.GetOrCreate("scratch", Config{PoolSize: 1})
	require.NoError(t, err)

	require.NoError(t, r.Remove("scratch"))
	assert.Zero(t, r.Len())
	assert.ErrorIs(t, r.Remove("scratch"), ErrNotFound)

	// The caller's reference keeps the arena alive.
	assert.True(t, a.IsInitialized())
	_, err = a.Allocate(64, 0)
	require.NoError(t, err)

	require.NoError(t, a.Release())
	assert.False(t, a.IsInitialized())
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()

	a, err := r.GetOrCreate("one", Config{PoolSize: 1})
	require.NoError(t, err)
	require.NoError(t, a.Release())

	require.NoError(t, r.Close())
	assert.Zero(t, r.Len())
	assert.False(t, a.IsInitialized())
}
