package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmarena/internal/fs"
)

func testName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/shm_test_%d_%s", os.Getpid(), strings.ReplaceAll(t.Name(), "/", "_"))
}

func TestPath(t *testing.T) {
	p, err := Path("/arena_1")
	require.NoError(t, err)
	assert.Equal(t, Dir(), p[:len(Dir())])

	same, err := Path("arena_1")
	require.NoError(t, err)
	assert.Equal(t, p, same)

	for _, bad := range []string{"", "/", "a/b", "/..", strings.Repeat("x", 300)} {
		_, err := Path(bad)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", bad)
	}
}

func TestCreateOpenUnlink(t *testing.T) {
	name := testName(t)
	t.Cleanup(func() { _ = Unlink(name) })

	f, err := Create(name, 1<<20)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.True(t, Exists(name))

	_, err = Create(name, 1<<20)
	assert.ErrorIs(t, err, ErrExists)

	g, size, err := Open(name)
	require.NoError(t, err)
	require.NoError(t, g.Close())
	assert.Equal(t, int64(1<<20), size)

	require.NoError(t, Unlink(name))
	assert.False(t, Exists(name))

	_, _, err = Open(name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, Unlink(name), ErrNotFound)
}

func TestNamespace_Faults(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ns := NewNamespace(t.TempDir(), ffs)

	t.Run("truncate failure leaves nothing behind", func(t *testing.T) {
		ffs.AddRule("truncate_fails", fs.Fault{FailOnTruncate: true})

		_, err := ns.Create("/truncate_fails", 4096)
		assert.ErrorIs(t, err, fs.ErrInjected)
		assert.False(t, ns.Exists("/truncate_fails"))
	})

	t.Run("open failure", func(t *testing.T) {
		ffs.AddRule("open_fails", fs.Fault{FailOnOpen: true})

		_, err := ns.Create("/open_fails", 4096)
		assert.ErrorIs(t, err, fs.ErrInjected)
		assert.NotErrorIs(t, err, ErrExists)
	})

	t.Run("stat failure on open", func(t *testing.T) {
		f, err := ns.Create("/stat_fails", 4096)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		ffs.AddRule("stat_fails", fs.Fault{FailOnStat: true})

		_, _, err = ns.Open("/stat_fails")
		assert.ErrorIs(t, err, fs.ErrInjected)
	})

	t.Run("remove failure", func(t *testing.T) {
		f, err := ns.Create("/remove_fails", 4096)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		ffs.AddRule("remove_fails", fs.Fault{FailOnRemove: true})
		assert.ErrorIs(t, ns.Unlink("/remove_fails"), fs.ErrInjected)
		assert.True(t, ns.Exists("/remove_fails"))
	})
}

func TestNamespace_Dir(t *testing.T) {
	dir := t.TempDir()
	ns := NewNamespace(dir, nil)

	p, err := ns.Path("/x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x"), p)

	f, err := ns.Create("x", 10)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = os.Stat(p)
	assert.NoError(t, err)
}
