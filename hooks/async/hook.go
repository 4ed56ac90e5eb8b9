// Package asynchook moves hook delivery off the store's goroutines.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{OperationErrorEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := keyvmongo.New[Session](keyvmongo.Options[Session]{
//	    Source: keyvmongo.URL{URI: uri},
//	    Hooks:  hooks,
//	})
//
// Events are dropped when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/keyvmongo"
)

type Hooks struct {
	inner   keyvmongo.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards q against send-after-close
	closed  bool
	dropped atomic.Uint64
}

var _ keyvmongo.Hooks = (*Hooks)(nil)

func New(inner keyvmongo.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns the number of events discarded because the queue was full
// or the decorator was closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Connected(s, c string) { h.try(func() { h.inner.Connected(s, c) }) }
func (h *Hooks) ConnectionFailed(s string, err error) {
	h.try(func() { h.inner.ConnectionFailed(s, err) })
}
func (h *Hooks) IndexError(c string, err error) { h.try(func() { h.inner.IndexError(c, err) }) }
func (h *Hooks) OperationError(op, k string, err error) {
	h.try(func() { h.inner.OperationError(op, k, err) })
}
