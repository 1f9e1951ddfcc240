package mmap

import (
	"context"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Prefault writes a zero byte to every page of a freshly created mapping so
// that each page is resident before the region is handed out. It must not be
// called on a mapping that already holds data.
//
// Pages are split into contiguous chunks touched in parallel.
func (m *Mapping) Prefault(ctx context.Context) error {
	data := m.Bytes()
	if data == nil {
		return ErrClosed
	}

	pageSize := os.Getpagesize()
	pages := (len(data) + pageSize - 1) / pageSize
	workers := runtime.GOMAXPROCS(0)
	perWorker := (pages + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < pages; lo += perWorker {
		hi := min(lo+perWorker, pages)
		g.Go(func() error {
			for p := lo; p < hi; p++ {
				if p%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				data[p*pageSize] = 0
			}
			return nil
		})
	}
	return g.Wait()
}
