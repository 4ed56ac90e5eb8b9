package keyvmongo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/unkn0wn-root/keyvmongo/codec"
	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/internal/util"
)

// State is the lifecycle position of a Store.
type State int32

const (
	StateConstructed State = iota
	StateConnecting
	StateReady  // terminal
	StateFailed // terminal; discard the store
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Store is a readiness-gated record store. Safe for concurrent use.
//
// Operations issued before the connection is ready wait for it. If the store
// fails to connect, they wait until their context ends; nothing retries.
type Store[V any] struct {
	collection   string
	ns           string
	codec        c.Codec[V]
	log          Logger
	hooks        Hooks
	onFailure    func(error)
	awaitIndexes bool
	now          func() time.Time

	state atomic.Int32
	ready chan struct{}       // closed once, after coll is set
	coll  docstore.Collection // read-only after ready

	cancel context.CancelFunc
	closed atomic.Bool
	done   chan struct{}

	mu    sync.Mutex
	owned func(context.Context) error // disconnects a client dialed by the URL strategy
}

func newStore[V any](opts Options[V]) (*Store[V], error) {
	src, err := checkSource(opts.Source)
	if err != nil {
		return nil, &ConfigError{Field: "Source", Err: err}
	}

	s := &Store[V]{
		collection:   coalesce(opts.Collection, DefaultCollection),
		ns:           opts.Namespace,
		codec:        opts.Codec,
		awaitIndexes: opts.AwaitIndexes,
		ready:        make(chan struct{}),
		done:         make(chan struct{}),
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.onFailure = opts.OnFailure
	if s.onFailure == nil {
		s.onFailure = defaultOnFailure
	}
	s.now = opts.Now
	if s.now == nil {
		s.now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state.Store(int32(StateConnecting))
	go s.connect(ctx, src)
	return s, nil
}

func (s *Store[V]) State() State { return State(s.state.Load()) }

func (s *Store[V]) Namespace() string { return s.ns }

func (s *Store[V]) Collection() string { return s.collection }

// Ready blocks until the store is ready, ctx ends, or the store is closed.
func (s *Store[V]) Ready(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the stored value. A missing key is (zero, false, nil).
// Records past their expiresAt are returned until the backend removes them.
func (s *Store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if key == "" {
		return zero, false, ErrEmptyKey
	}
	if err := s.Ready(ctx); err != nil {
		return zero, false, err
	}
	raw, ok, err := s.coll.Find(ctx, key)
	if err != nil {
		return zero, false, s.opErr("get", key, err)
	}
	if !ok {
		return zero, false, nil
	}
	v, err := s.decode(raw)
	if err != nil {
		return zero, false, s.opErr("get", key, err)
	}
	return v, true, nil
}

// Set upserts key with value. ttl > 0 sets expiresAt to now+ttl; otherwise
// the record never expires. The result is the backend's write acknowledgment.
// The empty key is rejected with ErrEmptyKey.
func (s *Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) (docstore.WriteResult, error) {
	if key == "" {
		return docstore.WriteResult{}, ErrEmptyKey
	}
	if err := s.Ready(ctx); err != nil {
		return docstore.WriteResult{}, err
	}
	stored, err := s.encode(value)
	if err != nil {
		return docstore.WriteResult{}, s.opErr("set", key, err)
	}
	rec := docstore.Record{Key: key, Value: stored}
	if ttl > 0 {
		exp := s.now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	res, err := s.coll.Upsert(ctx, rec)
	if err != nil {
		return docstore.WriteResult{}, s.opErr("set", key, err)
	}
	return res, nil
}

// Delete removes key and reports whether a record was removed.
// Set refuses the empty key, so Delete("") is false without waiting for readiness.
func (s *Store[V]) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	if err := s.Ready(ctx); err != nil {
		return false, err
	}
	ok, err := s.coll.Delete(ctx, key)
	if err != nil {
		return false, s.opErr("delete", key, err)
	}
	return ok, nil
}

// Clear removes every record under "<namespace>:". Without a namespace it
// removes every record in the collection. Indexes are kept.
func (s *Store[V]) Clear(ctx context.Context) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	prefix := util.NamespacePrefix(s.ns)
	n, err := s.coll.DeletePrefix(ctx, prefix)
	if err != nil {
		return s.opErr("clear", prefix, err)
	}
	s.log.Debug("cleared", Fields{"collection": s.collection, "prefix": prefix, "deleted": n})
	return nil
}

// Has reports whether a record exists for key.
func (s *Store[V]) Has(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if err := s.Ready(ctx); err != nil {
		return false, err
	}
	_, ok, err := s.coll.Find(ctx, key)
	if err != nil {
		return false, s.opErr("has", key, err)
	}
	return ok, nil
}

// Close stops a pending connection attempt and releases a client the store
// dialed itself. Borrowed handles are left open. Waiting operations return
// ErrClosed. A store closed before it became ready reports StateFailed.
// Safe to call multiple times.
func (s *Store[V]) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.state.CompareAndSwap(int32(StateConnecting), int32(StateFailed)) {
		s.log.Debug("connection abandoned by Close", Fields{"collection": s.collection})
	}
	close(s.done)
	s.cancel()

	s.mu.Lock()
	owned := s.owned
	s.owned = nil
	s.mu.Unlock()
	if owned != nil {
		return owned(ctx)
	}
	return nil
}

// setOwned records a disconnect func. If the store was closed while dialing,
// the client is disconnected right away.
func (s *Store[V]) setOwned(fn func(context.Context) error) {
	s.mu.Lock()
	if !s.closed.Load() {
		s.owned = fn
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	_ = fn(context.Background())
}

func (s *Store[V]) encode(v V) (any, error) {
	if s.codec == nil {
		return v, nil
	}
	return s.codec.Encode(v)
}

func (s *Store[V]) decode(raw docstore.Value) (V, error) {
	if s.codec == nil {
		var v V
		err := raw.Decode(&v)
		return v, err
	}
	var b []byte
	if err := raw.Decode(&b); err != nil {
		var zero V
		return zero, err
	}
	return s.codec.Decode(b)
}

func (s *Store[V]) opErr(op, key string, err error) error {
	s.hooks.OperationError(op, key, err)
	s.log.Debug("operation failed", Fields{"op": op, "key": key, "err": err})
	return fmt.Errorf("keyvmongo: %s %q: %w", op, key, err)
}
