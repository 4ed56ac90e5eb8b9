package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufHooks(opts Options) (*Hooks, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(l, opts), &buf
}

func TestOperationErrorRedactsKey(t *testing.T) {
	h, buf := newBufHooks(Options{})
	h.OperationError("get", "user:secret", errors.New("timeout"))

	out := buf.String()
	assert.Contains(t, out, "keyvmongo.operation_error")
	assert.NotContains(t, out, "user:secret")
	assert.Contains(t, out, h.redact("user:secret"))
}

func TestOperationErrorSampling(t *testing.T) {
	h, buf := newBufHooks(Options{OperationErrorEvery: 3, Redact: func(s string) string { return s }})
	for i := 0; i < 9; i++ {
		h.OperationError("set", "k", errors.New("x"))
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "keyvmongo.operation_error"))
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.Connected("url", "keyv")
	h.ConnectionFailed("url", errors.New("x"))
	h.IndexError("keyv", errors.New("x"))
	h.OperationError("get", "k", errors.New("x"))
}
