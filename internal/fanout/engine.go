package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/killmail"
	"github.com/rzbill/zkhook/internal/subscription"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

const defaultMaxConcurrent = 64

// Store is the registry surface the engine reads and prunes.
type Store interface {
	Get(ctx context.Context, f filter.Filter) (subscription.Set, error)
	Prune(ctx context.Context, f filter.Filter, failed subscription.Set) error
}

// Sender delivers one killmail to one subscriber.
type Sender interface {
	Deliver(ctx context.Context, sub subscription.Subscription, km *killmail.Killmail) error
}

// Options configures an Engine.
type Options struct {
	// MaxConcurrent bounds in-flight deliveries across all killmails.
	MaxConcurrent int64
	// VictimRole tags victim-derived filters with filter.Victim.
	VictimRole bool
	Logger     logpkg.Logger
}

// Result summarizes one Process call.
type Result struct {
	Filters     int
	Delivered   int
	Failed      int
	Pruned      int
	StoreErrors int
}

// Engine routes killmails to the subscribers of every matching filter.
type Engine struct {
	store   Store
	sender  Sender
	sem     *semaphore.Weighted
	deriver killmail.Deriver
	logger  logpkg.Logger

	inflight sync.WaitGroup
}

// New returns an Engine over store and sender.
func New(store Store, sender Sender, opts Options) *Engine {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	return &Engine{
		store:   store,
		sender:  sender,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
		deriver: killmail.Deriver{VictimRole: opts.VictimRole},
		logger:  opts.Logger,
	}
}

// Dispatch processes km in the background and returns immediately. The work
// is detached from ctx cancellation so in-flight deliveries finish; use Wait
// to drain.
func (e *Engine) Dispatch(ctx context.Context, km *killmail.Killmail) {
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.Process(context.WithoutCancel(ctx), km)
	}()
}

// Wait blocks until every dispatched killmail has been processed.
func (e *Engine) Wait() { e.inflight.Wait() }

// Process delivers km to every subscriber of every filter it matches and
// prunes subscribers whose delivery failed. Filters are handled
// independently: a store error or failed delivery under one filter never
// affects another.
func (e *Engine) Process(ctx context.Context, km *killmail.Killmail) Result {
	id := uuid.NewString()
	ctx = logpkg.ContextWith(ctx, logpkg.DispatchIDKey, id)
	logger := e.logger.WithContext(ctx).With(logpkg.Uint64("killmail_id", km.ID))
	start := time.Now()

	filters := e.deriver.Filters(km)
	var delivered, failed, pruned, storeErrs atomic.Int64

	var g errgroup.Group
	for _, f := range filters {
		f := f
		g.Go(func() error {
			r := e.processFilter(ctx, logger, f, km)
			delivered.Add(int64(r.Delivered))
			failed.Add(int64(r.Failed))
			pruned.Add(int64(r.Pruned))
			storeErrs.Add(int64(r.StoreErrors))
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Filters:     len(filters),
		Delivered:   int(delivered.Load()),
		Failed:      int(failed.Load()),
		Pruned:      int(pruned.Load()),
		StoreErrors: int(storeErrs.Load()),
	}
	logger.Debug("killmail processed",
		logpkg.Int("filters", res.Filters),
		logpkg.Int("delivered", res.Delivered),
		logpkg.Int("failed", res.Failed),
		logpkg.Int("pruned", res.Pruned),
		logpkg.Dur("elapsed", time.Since(start)))
	return res
}

func (e *Engine) processFilter(ctx context.Context, logger logpkg.Logger, f filter.Filter, km *killmail.Killmail) Result {
	var res Result
	subs, err := e.store.Get(ctx, f)
	if err != nil {
		logger.Error("registry lookup failed", logpkg.Str("filter", f.String()), logpkg.Err(err))
		res.StoreErrors++
		return res
	}
	if subs.Len() == 0 {
		return res
	}

	var (
		mu       sync.Mutex
		failures = subscription.NewSet()
		ok       int
		g        errgroup.Group
	)
	for _, sub := range subs.Sorted() {
		sub := sub
		if err := e.sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer e.sem.Release(1)
			err := e.sender.Deliver(ctx, sub, km)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("delivery failed",
					logpkg.Str("filter", f.String()),
					logpkg.Str("webhook", sub.WebhookURL),
					logpkg.Err(err))
				failures.Add(sub)
				return nil
			}
			ok++
			return nil
		})
	}
	_ = g.Wait()

	res.Delivered = ok
	res.Failed = failures.Len()
	if failures.Len() == 0 {
		return res
	}
	// deliveries cut short by our own cancellation are not the subscriber's fault
	if ctx.Err() != nil {
		return res
	}
	if err := e.store.Prune(ctx, f, failures); err != nil {
		logger.Error("prune failed", logpkg.Str("filter", f.String()), logpkg.Err(err))
		res.StoreErrors++
		return res
	}
	res.Pruned = failures.Len()
	return res
}
