// Command keyvctl reads and writes records in a keyvmongo store.
//
//	keyvctl [-config keyv.yml] get <key>
//	keyvctl [-config keyv.yml] set <key> <value> [ttl]
//	keyvctl [-config keyv.yml] del <key>
//	keyvctl [-config keyv.yml] has <key>
//	keyvctl [-config keyv.yml] clear
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdslog "log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/keyvmongo"
	"github.com/unkn0wn-root/keyvmongo/config"
	lr "github.com/unkn0wn-root/keyvmongo/log/logrus"
	ls "github.com/unkn0wn-root/keyvmongo/log/slog"
	lz "github.com/unkn0wn-root/keyvmongo/log/zap"
)

var errUsage = errors.New("usage: keyvctl [-config path] get|set|del|has|clear [args]")

func main() {
	path := flag.String("config", os.Getenv("KEYVCTL_CONFIG"), "path to YAML config")
	timeout := flag.Duration("timeout", 30*time.Second, "overall command timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, *path, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "keyvctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, flush, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer flush()

	src, release, err := cfg.Source()
	if err != nil {
		return err
	}
	defer release(context.Background())
	valueCodec, err := cfg.Codec()
	if err != nil {
		return err
	}

	failed := make(chan error, 1)
	store, err := keyvmongo.New[string](keyvmongo.Options[string]{
		Source:       src,
		Collection:   cfg.Collection,
		Namespace:    cfg.Namespace,
		Codec:        valueCodec,
		AwaitIndexes: cfg.AwaitIndexes,
		Logger:       logger,
		OnFailure:    func(err error) { failed <- err },
	})
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	// a CLI reports connection failures instead of crashing
	readyCtx, cancelReady := context.WithCancelCause(ctx)
	defer cancelReady(nil)
	go func() {
		select {
		case err := <-failed:
			cancelReady(err)
		case <-readyCtx.Done():
		}
	}()
	if err := store.Ready(readyCtx); err != nil {
		if cause := context.Cause(readyCtx); cause != nil {
			return cause
		}
		return err
	}

	return dispatch(ctx, store, args)
}

func dispatch(ctx context.Context, s *keyvmongo.Store[string], args []string) error {
	switch cmd, rest := args[0], args[1:]; {
	case cmd == "get" && len(rest) == 1:
		v, ok, err := s.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: not found", rest[0])
		}
		fmt.Println(v)
		return nil

	case cmd == "set" && (len(rest) == 2 || len(rest) == 3):
		var ttl time.Duration
		if len(rest) == 3 {
			d, err := time.ParseDuration(rest[2])
			if err != nil {
				return fmt.Errorf("ttl: %w", err)
			}
			ttl = d
		}
		res, err := s.Set(ctx, rest[0], rest[1], ttl)
		if err != nil {
			return err
		}
		fmt.Printf("matched=%d modified=%d upserted=%d\n", res.Matched, res.Modified, res.Upserted)
		return nil

	case cmd == "del" && len(rest) == 1:
		ok, err := s.Delete(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil

	case cmd == "has" && len(rest) == 1:
		ok, err := s.Has(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil

	case cmd == "clear" && len(rest) == 0:
		return s.Clear(ctx)

	default:
		return errUsage
	}
}

func newLogger(cfg config.LogConfig) (keyvmongo.Logger, func(), error) {
	switch cfg.Format {
	case "logrus":
		l := logrus.New()
		l.SetOutput(os.Stderr)
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		l.SetLevel(lvl)
		return lr.LogrusLogger{E: logrus.NewEntry(l)}, func() {}, nil

	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, err
		}
		h := stdslog.NewTextHandler(os.Stderr, &stdslog.HandlerOptions{Level: lvl})
		return ls.Logger{L: stdslog.New(h)}, func() {}, nil

	default:
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(lvl)
		zc.OutputPaths = []string{"stderr"}
		l, err := zc.Build()
		if err != nil {
			return nil, nil, err
		}
		return lz.ZapLogger{L: l}, func() { _ = l.Sync() }, nil
	}
}
