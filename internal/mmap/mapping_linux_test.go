//go:build linux

package mmap

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_ResidentAfterPopulate(t *testing.T) {
	const size = 4 << 20
	m, err := MapAnon(size, Options{Align: HugePageSize, Populate: true})
	require.NoError(t, err)
	defer m.Close()

	resident, err := m.Resident()
	require.NoError(t, err)

	pages := uint64(size / os.Getpagesize())
	// Allow a small tolerance for kernel behavior differences.
	assert.Greater(t, float64(resident.GetCardinality())/float64(pages), 0.95)
}

func TestMapping_AdviseDontFork(t *testing.T) {
	m, err := MapAnon(1<<20, Options{})
	require.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.Advise(AccessDontFork))
	// Idempotent.
	assert.NoError(t, m.Advise(AccessDontFork))
}

func TestMapping_ResidentTouchedPage(t *testing.T) {
	pageSize := os.Getpagesize()
	m, err := MapAnon(16*pageSize, Options{})
	require.NoError(t, err)
	defer m.Close()

	m.Bytes()[3*pageSize] = 1

	resident, err := m.Resident()
	require.NoError(t, err)
	assert.True(t, resident.Contains(3))
	assert.LessOrEqual(t, resident.GetCardinality(), uint64(16))

	require.NoError(t, m.Close())
	_, err = m.Resident()
	assert.ErrorIs(t, err, ErrClosed)
}
