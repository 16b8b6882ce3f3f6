package serverrun

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rzbill/zkhook/internal/backoff"
	cfgpkg "github.com/rzbill/zkhook/internal/config"
	"github.com/rzbill/zkhook/internal/delivery"
	"github.com/rzbill/zkhook/internal/fanout"
	"github.com/rzbill/zkhook/internal/runtime"
	httpserver "github.com/rzbill/zkhook/internal/server/http"
	pebblestore "github.com/rzbill/zkhook/internal/storage/pebble"
	"github.com/rzbill/zkhook/internal/stream"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// HTTPAddr overrides Config.Addr() when set.
	HTTPAddr      string
	FsyncInterval time.Duration
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
}

// buildLogger applies the log config and falls back to a text logger at the
// requested level when the config is invalid.
func buildLogger(cfg logpkg.Config) logpkg.Logger {
	logger, err := logpkg.ApplyConfig(&cfg)
	if err == nil {
		return logger
	}
	lvl := logpkg.InfoLevel
	if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
		lvl = l
	}
	logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	logger.Warn("invalid log config; using defaults", logpkg.Err(err))
	return logger
}

// Run starts the killstream session and the registration API and blocks
// until ctx is cancelled. Shutdown order: HTTP server, stream session,
// in-flight deliveries, store.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return err
	}
	reconnect, err := backoff.ParseType(cfg.Reconnect.Type)
	if err != nil {
		return err
	}

	procLogger := opts.Logger
	if procLogger == nil {
		procLogger = buildLogger(cfg.Log)
	}
	logpkg.RedirectStdLog(procLogger)

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	addr := opts.HTTPAddr
	if addr == "" {
		addr = cfg.Addr()
	}

	rt, err := runtime.Open(runtime.Options{
		DataDir:       filepath.Join(dataDir, "store"),
		Fsync:         fsync,
		FsyncInterval: opts.FsyncInterval,
		Logger:        procLogger,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer rt.Close()

	procLogger.Info("Starting zkhook",
		logpkg.Str("http", addr),
		logpkg.Str("data_dir", dataDir),
		logpkg.Str("stream", cfg.Stream.URL),
		logpkg.Str("fsync", cfg.Fsync),
		logpkg.Int("max_concurrent", cfg.Delivery.MaxConcurrent),
		logpkg.Bool("tag_victim_role", cfg.TagVictimRole),
	)

	sender := delivery.New(delivery.Options{
		Timeout:   cfg.Delivery.Timeout.Std(),
		UserAgent: cfg.Delivery.UserAgent,
	})
	engine := fanout.New(rt.Registry(), sender, fanout.Options{
		MaxConcurrent: int64(cfg.Delivery.MaxConcurrent),
		VictimRole:    cfg.TagVictimRole,
		Logger:        procLogger.With(logpkg.Component("fanout")),
	})
	session := stream.New(stream.Options{
		URL:         cfg.Stream.URL,
		Channel:     cfg.Stream.Channel,
		ReadTimeout: cfg.Stream.ReadTimeout.Std(),
		Backoff: backoff.Policy{
			Type:   reconnect,
			Base:   cfg.Reconnect.Base.Std(),
			Cap:    cfg.Reconnect.Cap.Std(),
			Factor: cfg.Reconnect.Factor,
		},
		Logger: procLogger.With(logpkg.Component("stream")),
	}, engine)
	hsrv := httpserver.New(rt, procLogger)

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		httpErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, addr); err != nil && sctx.Err() == nil {
			httpErr = err
			procLogger.Error("http server stopped", logpkg.Err(err))
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := session.Run(sctx); err != nil && !errors.Is(err, context.Canceled) {
			procLogger.Error("stream session stopped", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	wg.Wait()
	engine.Wait()
	procLogger.Info("zkhook stopped", logpkg.F("stream", session.Stats()), logpkg.F("registry", rt.Registry().Stats()))
	return httpErr
}
