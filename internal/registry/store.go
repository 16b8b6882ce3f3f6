package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble"

	"github.com/rzbill/zkhook/internal/backoff"
	"github.com/rzbill/zkhook/internal/filter"
	pebblestore "github.com/rzbill/zkhook/internal/storage/pebble"
	"github.com/rzbill/zkhook/internal/subscription"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

const defaultStripes = 64

// Options tunes lock striping and commit retries.
type Options struct {
	// Stripes is the number of key lock stripes. Defaults to 64.
	Stripes int
	// Retry bounds commit retries. MaxAttempts counts the first try.
	Retry backoff.Policy
	// Storage, when set, is reported in Stats. It should be the hook the DB
	// was opened with.
	Storage *pebblestore.Counters
}

func (o *Options) setDefaults() {
	if o.Stripes <= 0 {
		o.Stripes = defaultStripes
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry.MaxAttempts = 5
	}
	if o.Retry.Type == "" {
		o.Retry.Type = backoff.Exp
	}
	if o.Retry.Base <= 0 {
		o.Retry.Base = 10 * time.Millisecond
	}
	if o.Retry.Cap <= 0 {
		o.Retry.Cap = 500 * time.Millisecond
	}
}

// Stats is a snapshot of registry counters since process start.
type Stats struct {
	Merges  uint64                    `json:"merges"`
	Prunes  uint64                    `json:"prunes"`
	Pruned  uint64                    `json:"pruned"`
	Storage *pebblestore.CounterStats `json:"storage,omitempty"`
}

// Store is the subscription registry.
type Store struct {
	db     *pebblestore.DB
	logger logpkg.Logger
	retry  backoff.Policy
	locks  []sync.Mutex
	disk   *pebblestore.Counters

	commit func(context.Context, *pebble.Batch) error

	merges atomic.Uint64
	prunes atomic.Uint64
	pruned atomic.Uint64
}

// New returns a registry backed by db.
func New(db *pebblestore.DB, logger logpkg.Logger, opts Options) *Store {
	opts.setDefaults()
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Store{
		db:     db,
		logger: logger,
		retry:  opts.Retry,
		locks:  make([]sync.Mutex, opts.Stripes),
		disk:   opts.Storage,
		commit: db.CommitBatch,
	}
}

func (s *Store) stripe(key []byte) *sync.Mutex {
	return &s.locks[xxhash.Sum64(key)%uint64(len(s.locks))]
}

// Get returns the subscribers of f. An absent key is an empty set.
func (s *Store) Get(ctx context.Context, f filter.Filter) (subscription.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := filter.EncodeKey(f)
	if err != nil {
		return nil, &StoreError{Op: "get", Filter: f, Err: err}
	}
	set, err := s.read(key)
	if err != nil {
		return nil, &StoreError{Op: "get", Filter: f, Err: err}
	}
	return set, nil
}

func (s *Store) read(key []byte) (subscription.Set, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return subscription.NewSet(), nil
	}
	if err != nil {
		return nil, err
	}
	set, err := subscription.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return set, nil
}

// MergeAdd unions additions into the stored set for f.
func (s *Store) MergeAdd(ctx context.Context, f filter.Filter, additions subscription.Set) error {
	for sub := range additions {
		if sub.WebhookURL == "" {
			return subscription.ErrEmptyWebhook
		}
	}
	if additions.Len() == 0 {
		return nil
	}
	err := s.update(ctx, "merge", f, func(cur subscription.Set) (subscription.Set, bool) {
		next := cur.Union(additions)
		return next, next.Len() != cur.Len()
	})
	if err == nil {
		s.merges.Add(1)
		s.logger.Debug("filter merged", logpkg.Str("filter", f.String()), logpkg.Int("added", additions.Len()))
	}
	return err
}

// Prune removes failed from the stored set for f. Members not present are
// ignored.
func (s *Store) Prune(ctx context.Context, f filter.Filter, failed subscription.Set) error {
	if failed.Len() == 0 {
		return nil
	}
	var removed int
	err := s.update(ctx, "prune", f, func(cur subscription.Set) (subscription.Set, bool) {
		next := cur.Difference(failed)
		removed = cur.Len() - next.Len()
		return next, removed > 0
	})
	if err == nil {
		s.prunes.Add(1)
		s.pruned.Add(uint64(removed))
		if removed > 0 {
			s.logger.Info("pruned failed subscribers", logpkg.Str("filter", f.String()), logpkg.Int("removed", removed))
		}
	}
	return err
}

// update runs fn against the current value of f's key under its stripe lock
// and commits the result. An empty result deletes the key.
func (s *Store) update(ctx context.Context, op string, f filter.Filter, fn func(subscription.Set) (subscription.Set, bool)) error {
	key, err := filter.EncodeKey(f)
	if err != nil {
		return &StoreError{Op: op, Filter: f, Err: err}
	}

	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 1; ; attempt++ {
		err := s.apply(ctx, key, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCorruptValue) || ctx.Err() != nil || s.retry.Exhausted(attempt+1) {
			return &StoreError{Op: op, Filter: f, Err: err}
		}
		delay := s.retry.Delay(attempt)
		s.logger.Warn("registry commit failed; retrying",
			logpkg.Str("op", op),
			logpkg.Str("filter", f.String()),
			logpkg.Int("attempt", attempt),
			logpkg.Dur("delay", delay),
			logpkg.Err(err))
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return &StoreError{Op: op, Filter: f, Err: ctx.Err()}
		case <-t.C:
		}
	}
}

func (s *Store) apply(ctx context.Context, key []byte, fn func(subscription.Set) (subscription.Set, bool)) error {
	cur, err := s.read(key)
	if err != nil {
		return err
	}
	next, changed := fn(cur)
	if !changed {
		return nil
	}

	b := s.db.NewBatch()
	defer b.Close()
	if next.Len() == 0 {
		if err := b.Delete(key, nil); err != nil {
			return err
		}
	} else {
		val, err := subscription.Encode(next)
		if err != nil {
			return err
		}
		if err := b.Set(key, val, nil); err != nil {
			return err
		}
	}
	return s.commit(ctx, b)
}

// Walk calls fn for every stored filter in key order. Keys that do not decode
// are logged and skipped.
func (s *Store) Walk(ctx context.Context, fn func(filter.Filter, subscription.Set) error) error {
	return s.walk(ctx, filter.Prefix(), fn)
}

// WalkKind is Walk restricted to filters of one kind; only that kind's key
// range is read.
func (s *Store) WalkKind(ctx context.Context, k filter.Kind, fn func(filter.Filter, subscription.Set) error) error {
	return s.walk(ctx, filter.KindPrefix(k), fn)
}

func (s *Store) walk(ctx context.Context, prefix []byte, fn func(filter.Filter, subscription.Set) error) error {
	return s.db.ScanPrefix(ctx, prefix, func(k, v []byte) error {
		f, err := filter.DecodeKey(k)
		if err != nil {
			s.logger.Warn("skipping unknown registry key", logpkg.Err(err))
			return nil
		}
		set, err := subscription.Decode(v)
		if err != nil {
			s.logger.Warn("skipping corrupt registry value", logpkg.Str("filter", f.String()), logpkg.Err(err))
			return nil
		}
		return fn(f, set)
	})
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	st := Stats{
		Merges: s.merges.Load(),
		Prunes: s.prunes.Load(),
		Pruned: s.pruned.Load(),
	}
	if s.disk != nil {
		disk := s.disk.Stats()
		st.Storage = &disk
	}
	return st
}
