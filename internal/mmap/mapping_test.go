//go:build unix

package mmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon(t *testing.T) {
	t.Run("read write", func(t *testing.T) {
		m, err := MapAnon(1<<20, Options{})
		require.NoError(t, err)
		defer m.Close()

		data := m.Bytes()
		require.Len(t, data, 1<<20)
		assert.Equal(t, 1<<20, m.Size())

		data[0] = 0xAB
		data[len(data)-1] = 0xCD
		assert.Equal(t, byte(0xAB), data[0])
		assert.Equal(t, byte(0xCD), data[len(data)-1])
	})

	t.Run("base alignment", func(t *testing.T) {
		m, err := MapAnon(3<<20, Options{Align: HugePageSize, Populate: true})
		require.NoError(t, err)
		defer m.Close()

		assert.Zero(t, m.Addr()%HugePageSize, "base %#x not 2 MiB aligned", m.Addr())
	})

	t.Run("huge page request falls back", func(t *testing.T) {
		m, err := MapAnon(HugePageSize, Options{Align: HugePageSize, HugePages: true, Populate: true})
		require.NoError(t, err)
		defer m.Close()

		// Either variant is acceptable; the mapping must be usable.
		m.Bytes()[HugePageSize-1] = 1
		assert.Zero(t, m.Addr()%HugePageSize)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := MapAnon(0, Options{})
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("invalid alignment", func(t *testing.T) {
		_, err := MapAnon(4096, Options{Align: 48})
		assert.ErrorIs(t, err, ErrInvalidAlignment)
	})
}

func TestMapping_Close(t *testing.T) {
	m, err := MapAnon(4096, Options{})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Prefault(context.Background()), ErrClosed)
}

func TestMapping_Region(t *testing.T) {
	m, err := MapAnon(8192, Options{})
	require.NoError(t, err)

	r, err := m.Region(100, 200)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 200)
	assert.Equal(t, 200, r.Size())

	r.Bytes()[0] = 7
	assert.Equal(t, byte(7), m.Bytes()[100])
	require.NoError(t, r.Advise(AccessSequential))

	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(8000, 200)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Close())
	assert.Nil(t, r.Bytes())
	assert.ErrorIs(t, r.Advise(AccessDefault), ErrClosed)
}

func TestMapping_Prefault(t *testing.T) {
	m, err := MapAnon(4<<20, Options{})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Prefault(context.Background()))
	for i := 0; i < len(m.Bytes()); i += os.Getpagesize() {
		assert.Zero(t, m.Bytes()[i])
	}
}

func TestMapFile_SharedVisibility(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	defer f.Close()

	const size = 1 << 20
	require.NoError(t, f.Truncate(size))

	a, err := MapFile(f, size, Options{Align: HugePageSize})
	require.NoError(t, err)
	defer a.Close()

	b, err := MapFile(f, size, Options{})
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Addr(), b.Addr())
	assert.Zero(t, a.Addr()%HugePageSize)

	copy(a.Bytes()[4096:], "shared")
	assert.Equal(t, "shared", string(b.Bytes()[4096:4102]))
}
