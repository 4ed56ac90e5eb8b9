// Package ristretto is an in-process backend for keyvmongo built on
// dgraph-io/ristretto. Expiry uses ristretto's per-item TTL: expired items are
// invisible to Get and reclaimed by ristretto's own cleanup ticker.
//
// ristretto is an admission-controlled cache, not durable storage. Under cost
// pressure it may refuse or evict records; refused writes surface as
// docstore.ErrRejected.
package ristretto

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/internal/frame"
	"github.com/unkn0wn-root/keyvmongo/internal/util"
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost is charged per record as its encoded size in bytes.
}

// Database is a single ristretto cache shared by all collections.
type Database struct {
	c *rc.Cache

	// ristretto cannot enumerate keys; track them for DeletePrefix. Each
	// write gets a generation so an exit reported for a replaced entry
	// does not untrack its successor.
	mu   sync.Mutex
	keys map[string]uint64
	gen  atomic.Uint64
}

var _ docstore.Database = (*Database)(nil)

// entry is the cache value. sk and gen let OnExit find the tracked key.
type entry struct {
	sk    string
	gen   uint64
	frame []byte
}

func New(cfg Config) (*Database, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto backend: invalid config")
	}
	d := &Database{keys: make(map[string]uint64)}
	// OnExit fires whenever ristretto drops an entry, TTL cleanup included.
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
		OnExit:      d.onExit,
	})
	if err != nil {
		return nil, err
	}
	d.c = c
	return d, nil
}

func (d *Database) Collection(name string) docstore.Collection {
	return &Collection{d: d, name: name}
}

func (d *Database) Close(context.Context) error {
	d.c.Wait()
	d.c.Close()
	return nil
}

// Metrics exposes ristretto metrics (nil unless Config.Metrics).
func (d *Database) Metrics() *rc.Metrics { return d.c.Metrics }

func (d *Database) onExit(v interface{}) {
	if e, ok := v.(*entry); ok {
		d.untrack(e.sk, e.gen)
	}
}

func (d *Database) track(sk string) uint64 {
	gen := d.gen.Add(1)
	d.mu.Lock()
	d.keys[sk] = gen
	d.mu.Unlock()
	return gen
}

// untrack forgets sk unless a newer write owns it. gen 0 forgets unconditionally.
func (d *Database) untrack(sk string, gen uint64) {
	d.mu.Lock()
	if cur, ok := d.keys[sk]; ok && (gen == 0 || cur == gen) {
		delete(d.keys, sk)
	}
	d.mu.Unlock()
}

func (d *Database) tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}

func (d *Database) matching(prefix string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.keys))
	for k := range d.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// Collection is a key prefix inside the shared cache.
type Collection struct {
	d    *Database
	name string
}

var _ docstore.Collection = (*Collection)(nil)

func (c *Collection) key(k string) string { return util.StorageKey(c.name, k) }

func (c *Collection) lookup(sk string) ([]byte, bool) {
	v, ok := c.d.c.Get(sk)
	if !ok {
		return nil, false
	}
	e, _ := v.(*entry)
	if e == nil || e.frame == nil {
		// self-heal: drop unexpected entry shape
		c.d.c.Del(sk)
		return nil, false
	}
	return e.frame, true
}

func (c *Collection) Find(_ context.Context, key string) (docstore.Value, bool, error) {
	sk := c.key(key)
	b, ok := c.lookup(sk)
	if !ok {
		return nil, false, nil
	}
	_, v, err := frame.Decode(b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *Collection) Upsert(_ context.Context, rec docstore.Record) (docstore.WriteResult, error) {
	b, err := frame.Encode(rec)
	if err != nil {
		return docstore.WriteResult{}, err
	}
	sk := c.key(rec.Key)
	_, existed := c.lookup(sk)

	var ttl time.Duration
	if rec.ExpiresAt != nil {
		ttl = time.Until(*rec.ExpiresAt)
		if ttl <= 0 {
			// already expired; ristretto rejects non-positive TTLs
			c.d.c.Del(sk)
			c.d.c.Wait()
			c.d.untrack(sk, 0)
			return writeResult(existed, false), nil
		}
	}

	// tracked before the write so a rejection or a fast expiry untracks it
	gen := c.d.track(sk)
	e := &entry{sk: sk, gen: gen, frame: b}
	if !c.d.c.SetWithTTL(sk, e, int64(len(b)), ttl) {
		c.d.untrack(sk, gen)
		return docstore.WriteResult{}, docstore.ErrRejected
	}
	c.d.c.Wait()
	if _, ok := c.lookup(sk); !ok {
		c.d.untrack(sk, gen)
		return docstore.WriteResult{}, docstore.ErrRejected // dropped by admission policy
	}
	return writeResult(existed, true), nil
}

func writeResult(existed, stored bool) docstore.WriteResult {
	switch {
	case existed:
		return docstore.WriteResult{Acknowledged: true, Matched: 1, Modified: 1}
	case stored:
		return docstore.WriteResult{Acknowledged: true, Upserted: 1}
	default:
		return docstore.WriteResult{Acknowledged: true}
	}
}

func (c *Collection) Delete(_ context.Context, key string) (bool, error) {
	sk := c.key(key)
	_, ok := c.lookup(sk)
	c.d.c.Del(sk)
	c.d.c.Wait()
	c.d.untrack(sk, 0)
	return ok, nil
}

func (c *Collection) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, sk := range c.d.matching(c.key(prefix)) {
		if _, ok := c.lookup(sk); ok {
			n++
		}
		c.d.c.Del(sk)
		c.d.untrack(sk, 0)
	}
	c.d.c.Wait()
	return n, nil
}

// EnsureIndexes is a no-op: the cache key is the uniqueness constraint.
func (c *Collection) EnsureIndexes(context.Context) error { return nil }
