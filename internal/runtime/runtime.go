package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rzbill/zkhook/internal/registry"
	pebblestore "github.com/rzbill/zkhook/internal/storage/pebble"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Logger        logpkg.Logger
}

// Runtime owns the store and the registry built on it.
type Runtime struct {
	db       *pebblestore.DB
	registry *registry.Store

	closeOnce sync.Once
	closeErr  error
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	counters := &pebblestore.Counters{}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       counters,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	reg := registry.New(db, logger.With(logpkg.Component("registry")), registry.Options{Storage: counters})
	return &Runtime{db: db, registry: reg}, nil
}

// Close closes underlying resources. Safe to call more than once.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		if r.db != nil {
			r.closeErr = r.db.Close()
		}
	})
	return r.closeErr
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Registry returns the subscription registry.
func (r *Runtime) Registry() *registry.Store { return r.registry }
