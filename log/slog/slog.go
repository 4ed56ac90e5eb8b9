// Package slog adapts log/slog to keyvmongo.Logger.
package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	"github.com/unkn0wn-root/keyvmongo"
)

var _ keyvmongo.Logger = Logger{}

// Logger writes through L, or slog.Default() when L is nil.
type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f keyvmongo.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f keyvmongo.Fields) { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f keyvmongo.Fields) { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f keyvmongo.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f keyvmongo.Fields) {
	l := s.L
	if l == nil {
		l = stdslog.Default()
	}
	ctx := context.Background()
	// the store logs per operation at debug; skip building attrs nobody reads
	if !l.Enabled(ctx, level) {
		return
	}
	l.LogAttrs(ctx, level, msg, attrs(f)...)
}

// attrs sorts keys so text output is stable. Errors are logged by message.
func attrs(f keyvmongo.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]stdslog.Attr, 0, len(keys))
	for _, k := range keys {
		switch v := f[k].(type) {
		case error:
			out = append(out, stdslog.String(k, v.Error()))
		default:
			out = append(out, stdslog.Any(k, v))
		}
	}
	return out
}
