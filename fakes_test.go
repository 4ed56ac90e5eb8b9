package keyvmongo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/internal/frame"
)

type memRecord struct {
	frame []byte
	exp   *time.Time
}

// memCollection is an in-memory collection. Expired records stay visible
// until sweep runs, like a store with a background TTL monitor.
type memCollection struct {
	mu   sync.Mutex
	m    map[string]memRecord
	puts int

	indexCalls int
	indexErr   error
	indexGate  chan struct{} // if set, EnsureIndexes blocks until closed
	opErr      error
}

var _ docstore.Collection = (*memCollection)(nil)

func newMemCollection() *memCollection { return &memCollection{m: make(map[string]memRecord)} }

func (c *memCollection) Find(_ context.Context, key string) (docstore.Value, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opErr != nil {
		return nil, false, c.opErr
	}
	r, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	_, v, err := frame.Decode(r.frame)
	return v, err == nil, err
}

func (c *memCollection) Upsert(_ context.Context, rec docstore.Record) (docstore.WriteResult, error) {
	b, err := frame.Encode(rec)
	if err != nil {
		return docstore.WriteResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opErr != nil {
		return docstore.WriteResult{}, c.opErr
	}
	c.puts++
	_, existed := c.m[rec.Key]
	c.m[rec.Key] = memRecord{frame: b, exp: rec.ExpiresAt}
	if existed {
		return docstore.WriteResult{Acknowledged: true, Matched: 1, Modified: 1}, nil
	}
	return docstore.WriteResult{Acknowledged: true, Upserted: 1}, nil
}

func (c *memCollection) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opErr != nil {
		return false, c.opErr
	}
	_, ok := c.m[key]
	delete(c.m, key)
	return ok, nil
}

func (c *memCollection) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opErr != nil {
		return 0, c.opErr
	}
	var n int64
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
			n++
		}
	}
	return n, nil
}

func (c *memCollection) EnsureIndexes(ctx context.Context) error {
	c.mu.Lock()
	c.indexCalls++
	gate, err := c.indexGate, c.indexErr
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// sweep drops every record whose expiry is not after now.
func (c *memCollection) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, r := range c.m {
		if r.exp != nil && !r.exp.After(now) {
			delete(c.m, k)
		}
	}
}

func (c *memCollection) expiry(key string) (*time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r.exp, ok
}

func (c *memCollection) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *memCollection) indexCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexCalls
}

type memDB struct {
	mu    sync.Mutex
	coll  *memCollection
	names []string
}

func newMemDB() *memDB { return &memDB{coll: newMemCollection()} }

func (d *memDB) Collection(name string) docstore.Collection {
	d.mu.Lock()
	d.names = append(d.names, name)
	d.mu.Unlock()
	return d.coll
}

func (d *memDB) requested() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

// openerDB is a memDB with an explicit open step. A non-nil gate holds
// Open until it is closed or ctx ends.
type openerDB struct {
	*memDB
	gate    chan struct{}
	mu      sync.Mutex
	opened  bool
	opens   int
	openErr error
}

func (d *openerDB) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *openerDB) Open(ctx context.Context) error {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = true
	return nil
}

// fakeConn is an External connection opened (or failed) by the test.
type fakeConn struct {
	db docstore.Database

	mu       sync.Mutex
	open     bool
	onOpen   []func()
	onFailed []func(error)
}

func (f *fakeConn) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) OnceOpen(fn func()) {
	f.mu.Lock()
	if f.open {
		f.mu.Unlock()
		fn()
		return
	}
	f.onOpen = append(f.onOpen, fn)
	f.mu.Unlock()
}

func (f *fakeConn) OnceFailed(fn func(error)) {
	f.mu.Lock()
	f.onFailed = append(f.onFailed, fn)
	f.mu.Unlock()
}

func (f *fakeConn) Database() docstore.Database { return f.db }

func (f *fakeConn) listeners() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.onOpen), len(f.onFailed)
}

func (f *fakeConn) openNow() {
	f.mu.Lock()
	f.open = true
	fns := f.onOpen
	f.onOpen = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeConn) failNow(err error) {
	f.mu.Lock()
	fns := f.onFailed
	f.onFailed = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

// recHooks records hook calls.
type recHooks struct {
	mu         sync.Mutex
	connected  []string
	failed     []error
	indexErrs  []error
	opErrs     []string
	indexErrCh chan error
}

func newRecHooks() *recHooks { return &recHooks{indexErrCh: make(chan error, 4)} }

func (h *recHooks) Connected(strategy, _ string) {
	h.mu.Lock()
	h.connected = append(h.connected, strategy)
	h.mu.Unlock()
}

func (h *recHooks) ConnectionFailed(_ string, err error) {
	h.mu.Lock()
	h.failed = append(h.failed, err)
	h.mu.Unlock()
}

func (h *recHooks) IndexError(_ string, err error) {
	h.mu.Lock()
	h.indexErrs = append(h.indexErrs, err)
	h.mu.Unlock()
	h.indexErrCh <- err
}

func (h *recHooks) OperationError(op, _ string, _ error) {
	h.mu.Lock()
	h.opErrs = append(h.opErrs, op)
	h.mu.Unlock()
}

func (h *recHooks) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opErrs...)
}

var errBoom = errors.New("boom")
