// Package sloghooks reports store events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/keyvmongo"
)

type Options struct {
	// Sampling to avoid floods during a backend outage; 0/1 = log all.
	OperationErrorEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	opErrCtr atomic.Uint64
}

var _ keyvmongo.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Connected(strategy, collection string) {
	if h.l == nil {
		return
	}
	h.l.Info("keyvmongo.connected",
		"strategy", strategy,
		"collection", collection)
}

func (h *Hooks) ConnectionFailed(strategy string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("keyvmongo.connection_failed",
		"strategy", strategy,
		"err", err)
}

func (h *Hooks) IndexError(collection string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("keyvmongo.index_error",
		"collection", collection,
		"err", err,
		"detail", "uniqueness and expiry not enforced until indexes exist")
}

func (h *Hooks) OperationError(op, key string, err error) {
	if h.l == nil || !sample(h.opts.OperationErrorEvery, &h.opErrCtr) {
		return
	}
	h.l.Warn("keyvmongo.operation_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}
