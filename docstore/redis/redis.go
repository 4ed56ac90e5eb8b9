// Package redis is a Redis backend for keyvmongo.
//
// Each record lives under "<collection>:<key>" as a wire frame. Expiry is
// delegated to Redis key expiry (SET ... PX with the time left until
// expiresAt), so expired records disappear without any sweep on our side.
package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/internal/frame"
	"github.com/unkn0wn-root/keyvmongo/internal/util"
)

var ErrNilClient = errors.New("redis backend: nil client")

const scanCount = 512

// Database exposes collections backed by one Redis client.
type Database struct {
	rdb         goredis.UniversalClient
	closeClient bool

	opened atomic.Bool
}

var (
	_ docstore.Database = (*Database)(nil)
	_ docstore.Opener   = (*Database)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Database, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Database{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Opened reports whether Open has verified the server.
func (d *Database) Opened() bool { return d.opened.Load() }

// Open verifies the server answers PING.
func (d *Database) Open(ctx context.Context) error {
	if err := d.rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	d.opened.Store(true)
	return nil
}

func (d *Database) Collection(name string) docstore.Collection {
	return &Collection{rdb: d.rdb, name: name}
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times.
func (d *Database) Close(context.Context) error {
	if d.closeClient {
		if err := d.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// Collection is a key prefix inside the Redis keyspace.
type Collection struct {
	rdb  goredis.UniversalClient
	name string
}

var _ docstore.Collection = (*Collection)(nil)

func (c *Collection) key(k string) string { return util.StorageKey(c.name, k) }

func (c *Collection) Find(ctx context.Context, key string) (docstore.Value, bool, error) {
	b, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err
	}
	_, v, err := frame.Decode(b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Upsert writes the frame with SET GET so the previous value tells us whether
// the write matched an existing record.
func (c *Collection) Upsert(ctx context.Context, rec docstore.Record) (docstore.WriteResult, error) {
	b, err := frame.Encode(rec)
	if err != nil {
		return docstore.WriteResult{}, err
	}

	args := goredis.SetArgs{Get: true}
	if rec.ExpiresAt != nil {
		// EXAT only carries whole seconds; a relative TTL keeps milliseconds
		ttl := time.Until(*rec.ExpiresAt)
		if ttl <= 0 {
			// already expired: drop the key instead of writing it
			n, err := c.rdb.Del(ctx, c.key(rec.Key)).Result()
			if err != nil {
				return docstore.WriteResult{}, err
			}
			return docstore.WriteResult{Acknowledged: true, Matched: n, Modified: n}, nil
		}
		args.TTL = ttl
	}

	err = c.rdb.SetArgs(ctx, c.key(rec.Key), b, args).Err()
	switch {
	case err == goredis.Nil:
		return docstore.WriteResult{Acknowledged: true, Upserted: 1}, nil
	case err != nil:
		return docstore.WriteResult{}, err
	default:
		return docstore.WriteResult{Acknowledged: true, Matched: 1, Modified: 1}, nil
	}
}

func (c *Collection) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Del(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeletePrefix scans the collection keyspace and unlinks matches in batches.
// Not atomic: records written during the scan may survive.
func (c *Collection) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	match := util.EscapeGlob(c.key(prefix)) + "*"

	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// EnsureIndexes is a no-op: key identity is the uniqueness constraint and
// expiry is per key.
func (c *Collection) EnsureIndexes(context.Context) error { return nil }
