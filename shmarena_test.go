package shmarena

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmarena/resource"
)

func TestCreate(t *testing.T) {
	a, err := Create(Config{PoolSize: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, uint64(Granularity), a.Capacity())

	_, err = Create(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAttach_NotFound(t *testing.T) {
	_, err := Attach("/shmarena_facade_missing", Granularity)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRegistry(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	r := NewRegistry(WithMetricsCollector(metrics))
	t.Cleanup(func() { _ = r.Close() })

	a, err := r.GetOrCreate("scratch", Config{PoolSize: 1})
	require.NoError(t, err)
	defer a.Release()

	_, err = a.Allocate(64, 0)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.ProvisionCount)
	assert.Equal(t, uint64(Granularity), stats.ProvisionBytes)
	assert.Equal(t, int64(1), stats.AllocateCount)
	assert.Equal(t, uint64(64), stats.AllocateBytes)
}

func TestWithResourceController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

	_, err := Create(Config{PoolSize: 1}, WithResourceController(rc))
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := Create(Config{PoolSize: 1}, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Contains(t, buf.String(), `"msg":"arena created"`)
	assert.Contains(t, buf.String(), `"size":"2.0 MiB"`)
	assert.Contains(t, buf.String(), `"msg":"arena closed"`)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).WithArena("jobs")
	ctx := context.Background()

	logger.LogCreate(ctx, "/jobs", BackingShared, 64<<30, nil)
	logger.LogAttach(ctx, "/jobs", 1<<20, errors.New("boom"))
	logger.LogTeardown(ctx, "/jobs", nil)
	logger.LogAllocFailure(ctx, 128, 64, ErrOutOfMemory)

	out := buf.String()
	assert.Contains(t, out, "arena=jobs")
	assert.Contains(t, out, `msg="arena create completed"`)
	assert.Contains(t, out, `size="64 GiB"`)
	assert.Contains(t, out, `msg="arena attach failed"`)
	assert.Contains(t, out, `msg="arena teardown completed"`)
	assert.Contains(t, out, `msg="arena allocation failed"`)

	NoopLogger().LogCreate(ctx, "x", BackingAnonymous, 1, nil)
}

func TestBasicMetricsCollector(t *testing.T) {
	m := &BasicMetricsCollector{}

	m.RecordProvision(BackingAnonymous, 4<<20, true, 2*time.Millisecond, nil)
	m.RecordProvision(BackingShared, 4<<20, false, 4*time.Millisecond, ErrMappingFailed)
	m.RecordAllocate(64, nil)
	m.RecordAllocate(64, ErrOutOfMemory)
	m.RecordTranslate(nil)
	m.RecordTranslate(ErrOutOfBounds)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats.ProvisionCount)
	assert.Equal(t, int64(1), stats.ProvisionErrors)
	assert.Equal(t, uint64(4<<20), stats.ProvisionBytes)
	assert.Equal(t, int64(1), stats.ProvisionHugePages)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), stats.ProvisionAvgNanos)
	assert.Equal(t, int64(2), stats.AllocateCount)
	assert.Equal(t, int64(1), stats.AllocateErrors)
	assert.Equal(t, uint64(64), stats.AllocateBytes)
	assert.Equal(t, int64(2), stats.TranslateCount)
	assert.Equal(t, int64(1), stats.TranslateErrors)
}
