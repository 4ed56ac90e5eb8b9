package keyvmongo

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	c "github.com/unkn0wn-root/keyvmongo/codec"
	"github.com/unkn0wn-root/keyvmongo/docstore"
)

// Source selects where a Store gets its database handle.
// Exactly one of URL, External, Handle or Pending.
type Source interface {
	strategy() string
}

// URL dials a new MongoDB client. The database is the one named in URI
// (mongo.DefaultDatabase if none). The Store owns the client and
// disconnects it on Close.
type URL struct {
	URI           string
	ClientOptions *options.ClientOptions // optional, merged over URI settings
}

// External reuses a shared connection that may still be opening.
type External struct {
	Conn Connection
}

// Handle reuses a database handle. If DB implements docstore.Opener and
// reports not opened, the Store calls Open before use.
type Handle struct {
	DB docstore.Database
}

// Pending waits for a handle delivered on C. A Dialed with a non-nil Err,
// or a closed channel, fails the Store.
type Pending struct {
	C <-chan Dialed
}

// Dialed is the result of an asynchronous dial.
type Dialed struct {
	DB  docstore.Database
	Err error
}

func (URL) strategy() string      { return "url" }
func (External) strategy() string { return "external" }
func (Handle) strategy() string   { return "handle" }
func (Pending) strategy() string  { return "pending" }

// Connection is a higher-level connection shared between components.
// mongo.Connection implements it.
//
// If the connection also has a method OnceFailed(func(error)), the Store
// registers it and fails when the connection does.
type Connection interface {
	IsOpen() bool
	// OnceOpen runs fn once the connection opens (immediately if already open).
	OnceOpen(fn func())
	Database() docstore.Database
}

type failNotifier interface {
	OnceFailed(fn func(error))
}

// Options configure a Store. Only Source is required.
type Options[V any] struct {
	Source     Source
	Collection string // "" => DefaultCollection
	Namespace  string // key prefix owned by Clear; "" => Clear removes every record

	// Codec stores values as bytes. Nil hands values to the backend as-is.
	Codec c.Codec[V]

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// OnFailure receives the *ConnectionError when establishment fails.
	// Default panics: a store that cannot connect is a fatal misconfiguration.
	OnFailure func(error)

	// AwaitIndexes creates indexes before readiness and treats failure as a
	// connection failure. Default false: index creation runs in the background
	// and failures are only reported to Hooks.IndexError.
	AwaitIndexes bool

	Now func() time.Time // nil => time.Now
}

func New[V any](opts Options[V]) (*Store[V], error) {
	return newStore[V](opts)
}
