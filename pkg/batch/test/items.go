package test

import (
	"context"
	"sync"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
)

// SliceReader is a port.ItemReader over a fixed slice.
// FailAt, when positive, makes the FailAt-th Read return FailErr.
type SliceReader[T any] struct {
	Items   []T
	FailAt  int
	FailErr error

	pos    int
	reads  int
	Opened bool
	Closed bool
}

// NewSliceReader creates a SliceReader over items.
func NewSliceReader[T any](items ...T) *SliceReader[T] {
	return &SliceReader[T]{Items: items}
}

func (r *SliceReader[T]) Open(ctx context.Context) error {
	r.Opened = true
	r.pos = 0
	return nil
}

func (r *SliceReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	r.reads++
	if r.FailAt > 0 && r.reads == r.FailAt {
		return zero, r.FailErr
	}
	if r.pos >= len(r.Items) {
		return zero, port.ErrNoMoreItems
	}
	item := r.Items[r.pos]
	r.pos++
	return item, nil
}

func (r *SliceReader[T]) Close(ctx context.Context) error {
	r.Closed = true
	return nil
}

// RecordingWriter is a port.ItemWriter that keeps every chunk it is given.
// FailOnChunk, when positive, makes the FailOnChunk-th Write return FailErr.
type RecordingWriter[T any] struct {
	FailOnChunk int
	FailErr     error

	mu     sync.Mutex
	calls  int
	Chunks [][]T
	Opened bool
	Closed bool
}

func (w *RecordingWriter[T]) Open(ctx context.Context) error {
	w.Opened = true
	return nil
}

func (w *RecordingWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.FailOnChunk > 0 && w.calls == w.FailOnChunk {
		return w.FailErr
	}
	chunk := make([]T, len(items))
	copy(chunk, items)
	w.Chunks = append(w.Chunks, chunk)
	return nil
}

func (w *RecordingWriter[T]) Close(ctx context.Context) error {
	w.Closed = true
	return nil
}

// Written returns all written items in order.
func (w *RecordingWriter[T]) Written() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	var all []T
	for _, c := range w.Chunks {
		all = append(all, c...)
	}
	return all
}

// ChunkSizes returns the size of every written chunk.
func (w *RecordingWriter[T]) ChunkSizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	sizes := make([]int, len(w.Chunks))
	for i, c := range w.Chunks {
		sizes[i] = len(c)
	}
	return sizes
}

var (
	_ port.ItemReader[int] = (*SliceReader[int])(nil)
	_ port.ItemWriter[int] = (*RecordingWriter[int])(nil)
)
