package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/shmarena"
)

// Opcode is the direction of a transfer.
type Opcode int

const (
	// OpRead copies from the segment into the local buffer.
	OpRead Opcode = iota
	// OpWrite copies from the local buffer into the segment.
	OpWrite
)

func (o Opcode) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("Opcode(%d)", int(o))
	}
}

// Request moves len(Local) bytes between Local and [Offset, Offset+len(Local))
// of the segment SegmentID.
type Request struct {
	Op        Opcode
	Local     []byte
	SegmentID uint64
	Offset    uint64
}

// Result is the outcome of one Request.
type Result struct {
	Bytes int
	Err   error
}

// Worker executes transfers. Attached segments are cached for the worker's
// lifetime; it must not be shared between goroutines.
type Worker struct {
	t     *ArenaTransport
	cache map[uint64]*shmarena.Arena
}

// Transfer executes reqs in order. Per-request failures are reported in the
// results; the returned error is non-nil only when ctx ends the batch early.
//
// A batch holds one worker slot of the transport's resource controller.
func (w *Worker) Transfer(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	rc := w.t.opts.controller
	if err := rc.AcquireWorker(ctx); err != nil {
		for i := range results {
			results[i].Err = err
		}
		return results, err
	}
	defer rc.ReleaseWorker()

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(results); j++ {
				results[j].Err = err
			}
			return results, err
		}
		results[i] = w.do(ctx, req)
	}

	return results, nil
}

func (w *Worker) do(ctx context.Context, req Request) Result {
	a, err := w.segment(ctx, req.SegmentID)
	if err != nil {
		return Result{Err: err}
	}

	remote, err := a.View(req.Offset, uint64(len(req.Local)))
	if err != nil {
		return Result{Err: err}
	}

	if err := w.t.opts.controller.AcquireIO(ctx, len(remote)); err != nil {
		return Result{Err: err}
	}

	switch req.Op {
	case OpRead:
		return Result{Bytes: copy(req.Local, remote)}
	case OpWrite:
		return Result{Bytes: copy(remote, req.Local)}
	default:
		return Result{Err: fmt.Errorf("transport: unsupported opcode %v", req.Op)}
	}
}

func (w *Worker) segment(ctx context.Context, id uint64) (*shmarena.Arena, error) {
	if a, ok := w.cache[id]; ok {
		return a, nil
	}

	a, err := w.t.attach(ctx, id)
	if err != nil {
		return nil, err
	}
	w.cache[id] = a

	return a, nil
}

// Segments returns the number of cached segments.
func (w *Worker) Segments() int { return len(w.cache) }

// Close drops the worker's references to cached segments.
func (w *Worker) Close() error {
	var errs []error
	for id, a := range w.cache {
		errs = append(errs, a.Release())
		delete(w.cache, id)
	}
	return errors.Join(errs...)
}
