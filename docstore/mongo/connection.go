package mongo

import (
	"context"
	"sync"

	gomongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/unkn0wn-root/keyvmongo/docstore"
)

// Connection is a shared client that finishes its handshake in the background.
// Several stores can wait on the same Connection; each registers with OnceOpen.
type Connection struct {
	client *gomongo.Client
	db     *Database

	mu       sync.Mutex
	settled  bool
	err      error
	onOpen   []func()
	onFailed []func(error)
}

// Open starts a connection to uri and returns without waiting for the server.
// The handshake runs under ctx; cancelling ctx fails the connection.
func Open(ctx context.Context, uri string, opts *options.ClientOptions) (*Connection, error) {
	name, err := DatabaseName(uri)
	if err != nil {
		return nil, err
	}
	all := []*options.ClientOptions{options.Client().ApplyURI(uri)}
	if opts != nil {
		all = append(all, opts)
	}
	client, err := gomongo.Connect(ctx, all...)
	if err != nil {
		return nil, err
	}
	c := newConnection(client, &Database{db: client.Database(name)})
	go c.handshake(ctx, func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	return c, nil
}

func newConnection(client *gomongo.Client, db *Database) *Connection {
	return &Connection{client: client, db: db}
}

func (c *Connection) handshake(ctx context.Context, ping func(context.Context) error) {
	c.settle(ping(ctx))
}

// settle records the handshake outcome once and fires the matching listeners.
func (c *Connection) settle(err error) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	c.err = err
	open, failed := c.onOpen, c.onFailed
	c.onOpen, c.onFailed = nil, nil
	c.mu.Unlock()

	if err != nil {
		for _, fn := range failed {
			fn(err)
		}
		return
	}
	for _, fn := range open {
		fn()
	}
}

// IsOpen reports whether the handshake succeeded.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled && c.err == nil
}

// Err returns the handshake error, if any.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OnceOpen runs fn once the connection is open. If it is already open, fn runs
// immediately on the caller's goroutine. fn never runs if the handshake fails.
func (c *Connection) OnceOpen(fn func()) {
	c.mu.Lock()
	if !c.settled {
		c.onOpen = append(c.onOpen, fn)
		c.mu.Unlock()
		return
	}
	ok := c.err == nil
	c.mu.Unlock()
	if ok {
		fn()
	}
}

// OnceFailed runs fn with the handshake error if the connection fails.
func (c *Connection) OnceFailed(fn func(error)) {
	c.mu.Lock()
	if !c.settled {
		c.onFailed = append(c.onFailed, fn)
		c.mu.Unlock()
		return
	}
	err := c.err
	c.mu.Unlock()
	if err != nil {
		fn(err)
	}
}

func (c *Connection) Database() docstore.Database { return c.db }

// Client exposes the driver client.
func (c *Connection) Client() *gomongo.Client { return c.client }

// Close disconnects the client.
func (c *Connection) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}
