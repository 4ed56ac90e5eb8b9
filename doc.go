// Package keyvmongo is a storage backend for key-value caches that keeps its
// entries in a document store (MongoDB by default).
//
// A Store is usable as soon as New returns. The connection is established in
// the background from one of four sources:
//
//	URL      - dial a fresh MongoDB client from a connection string
//	External - wait for a shared, higher-level connection to open
//	Handle   - reuse a database handle, opening it if it has an open step
//	Pending  - wait for a database handle delivered on a channel
//
// Every operation waits for the one-time readiness signal before touching
// storage, so callers never sequence "connect, then use" themselves.
//
// Records:
//
//	{key: <string, unique>, value: <any>, expiresAt: <date|null, TTL-indexed>}
//
// Expiry is the backing store's job. Set computes expiresAt once at write
// time; the store's background monitor deletes the record some time after
// that. Get does not look at expiresAt.
//
// Usage:
//
//	s, err := keyvmongo.New[Session](keyvmongo.Options[Session]{
//	    Source:    keyvmongo.URL{URI: "mongodb://127.0.0.1:27017/app"},
//	    Namespace: "sessions",
//	})
//	_, err = s.Set(ctx, "sessions:42", sess, time.Hour)
//	v, ok, err := s.Get(ctx, "sessions:42")
package keyvmongo
