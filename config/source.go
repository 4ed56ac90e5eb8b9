package config

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unkn0wn-root/keyvmongo"
	rb "github.com/unkn0wn-root/keyvmongo/docstore/redis"
	"github.com/unkn0wn-root/keyvmongo/docstore/ristretto"
)

// Source builds the connection source for the configured backend. The
// returned release func frees resources the store does not own; call it
// after closing the store.
func (c *Config) Source() (keyvmongo.Source, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch c.Backend {
	case BackendRedis:
		db, err := rb.New(rb.Config{
			Client: goredis.NewClient(&goredis.Options{
				Addr:     c.Redis.Addr,
				Username: c.Redis.Username,
				Password: c.Redis.Password,
				DB:       c.Redis.DB,
			}),
			CloseClient: true,
		})
		if err != nil {
			return nil, nil, err
		}
		return keyvmongo.Handle{DB: db}, db.Close, nil

	case BackendMemory:
		db, err := ristretto.New(ristretto.Config{
			NumCounters: c.Memory.NumCounters,
			MaxCost:     c.Memory.MaxCost,
			BufferItems: c.Memory.BufferItems,
		})
		if err != nil {
			return nil, nil, err
		}
		return keyvmongo.Handle{DB: db}, db.Close, nil

	default:
		var opts *options.ClientOptions
		if c.ConnectTimeout > 0 {
			opts = options.Client().
				SetConnectTimeout(c.ConnectTimeout).
				SetServerSelectionTimeout(c.ConnectTimeout)
		}
		return keyvmongo.URL{URI: c.URL, ClientOptions: opts}, noop, nil
	}
}
