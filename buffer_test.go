package shmarena

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func TestBufferAllocator_Arena(t *testing.T) {
	t.Setenv(EnvDisable, "")

	b := NewBufferAllocator(Config{PoolSize: 4 << 20})
	t.Cleanup(func() { _ = b.Close() })

	buf, err := b.Allocate(100, 0)
	require.NoError(t, err)
	assert.Len(t, buf, 100)
	assert.Zero(t, addrOf(buf)%DefaultAlignment)

	a := b.Arena()
	require.NotNil(t, a)
	assert.True(t, a.OwnsAddress(addrOf(buf)))
	assert.Zero(t, b.Mappings())

	require.NoError(t, b.Free(buf))
	assert.Equal(t, uint64(128), a.Stats().Allocated, "arena space is not reclaimed")
}

func TestBufferAllocator_Disabled(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  string
		cfg  Config
	}{
		{name: "env", env: "1", cfg: Config{PoolSize: 4 << 20}},
		{name: "config", env: "", cfg: Config{PoolSize: 4 << 20, DisableArena: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvDisable, tc.env)

			b := NewBufferAllocator(tc.cfg)
			t.Cleanup(func() { _ = b.Close() })

			for _, align := range []uint64{0, 64, 4096, 2 << 20} {
				buf, err := b.Allocate(1000, align)
				require.NoError(t, err)
				assert.Len(t, buf, 1000)

				want := align
				if want == 0 {
					want = DefaultAlignment
				}
				assert.Zero(t, addrOf(buf)%uintptr(want), "alignment %d", want)
				buf[999] = 1
			}

			assert.Nil(t, b.Arena())
			assert.Equal(t, 4, b.Mappings())
		})
	}
}

func TestBufferAllocator_EnvReadOnce(t *testing.T) {
	t.Setenv(EnvDisable, "false")

	b := NewBufferAllocator(Config{PoolSize: 4 << 20})
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Allocate(64, 0)
	require.NoError(t, err)
	require.NotNil(t, b.Arena())

	t.Setenv(EnvDisable, "true")

	buf, err := b.Allocate(64, 0)
	require.NoError(t, err)
	assert.True(t, b.Arena().OwnsAddress(addrOf(buf)))
}

func TestBufferAllocator_Fallback(t *testing.T) {
	t.Setenv(EnvDisable, "")

	b := NewBufferAllocator(Config{PoolSize: 1})
	t.Cleanup(func() { _ = b.Close() })

	first, err := b.Allocate(Granularity, 0)
	require.NoError(t, err)
	assert.True(t, b.Arena().OwnsAddress(addrOf(first)))

	spill, err := b.Allocate(4096, 4096)
	require.NoError(t, err)
	assert.False(t, b.Arena().OwnsAddress(addrOf(spill)))
	assert.Zero(t, addrOf(spill)%4096)
	assert.Equal(t, 1, b.Mappings())

	require.NoError(t, b.Free(spill))
	assert.Zero(t, b.Mappings())
	assert.ErrorIs(t, b.Free(spill), ErrNotFound)
}

func TestBufferAllocator_Errors(t *testing.T) {
	b := NewBufferAllocator(Config{PoolSize: 1, DisableArena: true})

	_, err := b.Allocate(64, 3)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	buf, err := b.Allocate(0, 0)
	require.NoError(t, err)
	assert.Nil(t, buf)
	assert.NoError(t, b.Free(nil))

	assert.ErrorIs(t, b.Free(make([]byte, 8)), ErrNotFound)

	_, err = b.Allocate(64, 0)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Zero(t, b.Mappings())

	_, err = b.Allocate(64, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBufferAllocator_CloseRace(t *testing.T) {
	t.Setenv(EnvDisable, "")

	const goroutines = 8

	b := NewBufferAllocator(Config{PoolSize: 4 << 20, DisableArena: true})

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for range 50 {
				if _, err := b.Allocate(4096, 0); err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
			}
		}()
	}

	close(start)
	require.NoError(t, b.Close())
	wg.Wait()

	assert.Zero(t, b.Mappings())
	_, err := b.Allocate(4096, 0)
	assert.ErrorIs(t, err, ErrClosed)
}
