// Package search coalesces rapid search input into trailing requests whose
// results are delivered only while they are still the freshest.
package search

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a submitted query runs.
const DefaultDelay = 300 * time.Millisecond

// Func performs one search. It must honour ctx cancellation.
type Func[T any] func(ctx context.Context, query string) (T, error)

// Result is one delivered search outcome.
type Result[T any] struct {
	Query      string
	Value      T
	Err        error
	Generation uint64
}

type Option[T any] func(*Debouncer[T])

// WithDelay overrides DefaultDelay.
func WithDelay[T any](d time.Duration) Option[T] {
	return func(db *Debouncer[T]) {
		if d >= 0 {
			db.delay = d
		}
	}
}

// WithOnStale registers a hook called for every result discarded as superseded.
func WithOnStale[T any](fn func(query string)) Option[T] {
	return func(db *Debouncer[T]) { db.onStale = fn }
}

// Debouncer runs the latest submitted query after a quiet period. Each Submit
// bumps a generation counter and cancels the previous pending or in-flight
// search, so an older response can never overwrite a newer one.
type Debouncer[T any] struct {
	delay   time.Duration
	fn      Func[T]
	deliver func(Result[T])
	onStale func(query string)

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

// New returns a debouncer that calls deliver for fresh results. deliver runs
// with the debouncer's lock held and must not call Submit or Close.
func New[T any](fn Func[T], deliver func(Result[T]), opts ...Option[T]) *Debouncer[T] {
	d := &Debouncer[T]{delay: DefaultDelay, fn: fn, deliver: deliver}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit schedules query, superseding anything submitted before.
func (d *Debouncer[T]) Submit(ctx context.Context, query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.stopLocked()
	d.gen++
	gen := d.gen

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() { d.run(runCtx, gen, query) })
}

// Generation returns the number of queries submitted so far.
func (d *Debouncer[T]) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Close cancels pending work. Results arriving afterwards are dropped.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.stopLocked()
}

func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer[T]) run(ctx context.Context, gen uint64, query string) {
	if ctx.Err() != nil {
		return
	}

	v, err := d.fn(ctx, query)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || gen != d.gen {
		if d.onStale != nil {
			d.onStale(query)
		}
		return
	}
	d.deliver(Result[T]{Query: query, Value: v, Err: err, Generation: gen})
}
