package audio

import (
	"context"
	"sync"
)

// watch is a single-cell, latest-value-wins observable: many readers,
// one writer. It is the Go analog of a tokio::sync::watch channel —
// Wait blocks until the value differs from the last one the caller
// observed, never queuing intermediate values.
type watch struct {
	mu  sync.Mutex
	val NowPlaying
	ch  chan struct{}
}

func newWatch() *watch {
	return &watch{ch: make(chan struct{})}
}

// Get returns the latest published value.
func (w *watch) Get() NowPlaying {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.val
}

// set publishes a new value if it differs from the current one,
// waking every waiter. Mirrors send_if_modified: a no-op transition
// (silence-to-silence) never wakes anyone.
func (w *watch) set(v NowPlaying) {
	w.mu.Lock()
	if v == w.val {
		w.mu.Unlock()
		return
	}
	w.val = v
	ch := w.ch
	w.ch = make(chan struct{})
	w.mu.Unlock()
	close(ch)
}

// Wait blocks until the value changes from last, or ctx is done. It
// returns the new value.
func (w *watch) Wait(ctx context.Context, last NowPlaying) (NowPlaying, error) {
	for {
		w.mu.Lock()
		cur := w.val
		ch := w.ch
		w.mu.Unlock()

		if cur != last {
			return cur, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return NowPlaying{}, ctx.Err()
		}
	}
}
