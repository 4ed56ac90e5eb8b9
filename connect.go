package keyvmongo

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/docstore/mongo"
)

// checkSource resolves pointer variants and rejects sources that cannot
// produce a handle.
func checkSource(src Source) (Source, error) {
	switch v := src.(type) {
	case *URL:
		if v == nil {
			return nil, ErrNoStrategy
		}
		return checkSource(*v)
	case *External:
		if v == nil {
			return nil, ErrNoStrategy
		}
		return checkSource(*v)
	case *Handle:
		if v == nil {
			return nil, ErrNoStrategy
		}
		return checkSource(*v)
	case *Pending:
		if v == nil {
			return nil, ErrNoStrategy
		}
		return checkSource(*v)
	case URL:
		if v.URI == "" {
			return nil, ErrNoStrategy
		}
	case External:
		if v.Conn == nil {
			return nil, ErrNoStrategy
		}
	case Handle:
		if v.DB == nil {
			return nil, ErrNoStrategy
		}
	case Pending:
		if v.C == nil {
			return nil, ErrNoStrategy
		}
	default:
		return nil, ErrNoStrategy
	}
	return src, nil
}

// connect runs exactly one strategy. It returns once the strategy has either
// settled the store or handed off to a listener that will.
func (s *Store[V]) connect(ctx context.Context, src Source) {
	name := src.strategy()
	s.log.Debug("connecting", Fields{"strategy": name, "collection": s.collection})

	switch src := src.(type) {
	case URL:
		db, client, err := mongo.Dial(ctx, src.URI, src.ClientOptions)
		if err != nil {
			s.fail(name, err)
			return
		}
		s.setOwned(client.Disconnect)
		s.useDatabase(ctx, name, db)

	case External:
		conn := src.Conn
		if conn.IsOpen() {
			s.useDatabase(ctx, name, conn.Database())
			return
		}
		if fn, ok := conn.(failNotifier); ok {
			fn.OnceFailed(func(err error) { s.fail(name, err) })
		}
		conn.OnceOpen(func() { s.useDatabase(ctx, name, conn.Database()) })

	case Handle:
		if o, ok := src.DB.(docstore.Opener); ok && !o.Opened() {
			if err := o.Open(ctx); err != nil {
				s.fail(name, err)
				return
			}
		}
		s.useDatabase(ctx, name, src.DB)

	case Pending:
		select {
		case d, ok := <-src.C:
			switch {
			case !ok:
				s.fail(name, ErrPendingClosed)
			case d.Err != nil:
				s.fail(name, d.Err)
			default:
				s.useDatabase(ctx, name, d.DB)
			}
		case <-ctx.Done():
			s.fail(name, ctx.Err())
		}
	}
}

// useDatabase selects the collection, requests its indexes and resolves readiness.
func (s *Store[V]) useDatabase(ctx context.Context, strategy string, db docstore.Database) {
	if s.State() != StateConnecting {
		return // already settled
	}
	if s.closed.Load() {
		s.fail(strategy, ErrClosed)
		return
	}
	if db == nil {
		s.fail(strategy, ErrNilDatabase)
		return
	}
	coll := db.Collection(s.collection)

	if s.awaitIndexes {
		if err := coll.EnsureIndexes(ctx); err != nil {
			s.fail(strategy, err)
			return
		}
	} else {
		// fire-and-forget: readiness does not depend on the outcome
		go s.ensureIndexes(ctx, coll)
	}

	s.markReady(strategy, coll)
}

func (s *Store[V]) ensureIndexes(ctx context.Context, coll docstore.Collection) {
	err := coll.EnsureIndexes(ctx)
	if err == nil || (errors.Is(err, context.Canceled) && s.closed.Load()) {
		return
	}
	s.log.Warn("index creation failed; uniqueness and expiry not enforced",
		Fields{"collection": s.collection, "err": err})
	s.hooks.IndexError(s.collection, err)
}

func (s *Store[V]) markReady(strategy string, coll docstore.Collection) {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateReady)) {
		return
	}
	s.coll = coll
	s.log.Info("store ready", Fields{"strategy": strategy, "collection": s.collection})
	s.hooks.Connected(strategy, s.collection)
	close(s.ready)
}

func (s *Store[V]) fail(strategy string, err error) {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateFailed)) {
		return
	}
	if s.closed.Load() {
		s.log.Debug("connection abandoned by Close", Fields{"strategy": strategy, "err": err})
		return
	}
	cerr := &ConnectionError{Strategy: strategy, Err: err}
	s.log.Error("connection failed", Fields{"strategy": strategy, "collection": s.collection, "err": err})
	s.hooks.ConnectionFailed(strategy, err)
	s.onFailure(cerr)
}
