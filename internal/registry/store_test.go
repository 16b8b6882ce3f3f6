package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/zkhook/internal/backoff"
	"github.com/rzbill/zkhook/internal/filter"
	pebblestore "github.com/rzbill/zkhook/internal/storage/pebble"
	"github.com/rzbill/zkhook/internal/subscription"
)

func newTestStore(t *testing.T) (*Store, *pebblestore.DB) {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := New(db, nil, Options{Retry: backoff.Policy{Type: backoff.Fixed, Base: time.Millisecond, MaxAttempts: 3}})
	return s, db
}

func hook(i int) subscription.Subscription {
	return subscription.Subscription{WebhookURL: fmt.Sprintf("https://hooks.test/%d", i), Format: subscription.Discord}
}

func mustKey(t *testing.T, f filter.Filter) []byte {
	t.Helper()
	k, err := filter.EncodeKey(f)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	return k
}

func TestGetAbsentIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	set, err := s.Get(context.Background(), filter.System(30000142))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("want empty set, got %v", set.Sorted())
	}
}

func TestMergeAddIdempotent(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	f := filter.Character(7, filter.Attacker)
	add := subscription.NewSet(hook(1), hook(2))

	if err := s.MergeAdd(ctx, f, add); err != nil {
		t.Fatalf("merge: %v", err)
	}
	first, err := db.Get(mustKey(t, f))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if err := s.MergeAdd(ctx, f, add); err != nil {
		t.Fatalf("merge again: %v", err)
	}
	second, err := db.Get(mustKey(t, f))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("stored bytes changed on repeated merge")
	}

	got, _ := s.Get(ctx, f)
	if !got.Equal(add) {
		t.Fatalf("got %v want %v", got.Sorted(), add.Sorted())
	}
}

func TestMergeAddUnions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	f := filter.All()
	_ = s.MergeAdd(ctx, f, subscription.NewSet(hook(1)))
	_ = s.MergeAdd(ctx, f, subscription.NewSet(hook(2), hook(1)))

	got, _ := s.Get(ctx, f)
	if !got.Equal(subscription.NewSet(hook(1), hook(2))) {
		t.Fatalf("union: %v", got.Sorted())
	}
}

func TestMergeRejectsEmptyWebhook(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.MergeAdd(context.Background(), filter.All(), subscription.NewSet(subscription.Subscription{}))
	if !errors.Is(err, subscription.ErrEmptyWebhook) {
		t.Fatalf("want ErrEmptyWebhook, got %v", err)
	}
}

func TestPruneAbsentMemberIsNoop(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	f := filter.System(1)
	_ = s.MergeAdd(ctx, f, subscription.NewSet(hook(1)))
	before, _ := db.Get(mustKey(t, f))

	if err := s.Prune(ctx, f, subscription.NewSet(hook(9))); err != nil {
		t.Fatalf("prune: %v", err)
	}
	after, _ := db.Get(mustKey(t, f))
	if !bytes.Equal(before, after) {
		t.Fatalf("prune of absent member changed the value")
	}
	if err := s.Prune(ctx, filter.System(2), subscription.NewSet(hook(1))); err != nil {
		t.Fatalf("prune of absent key: %v", err)
	}
	if _, err := db.Get(mustKey(t, filter.System(2))); !errors.Is(err, pebblestore.ErrNotFound) {
		t.Fatalf("prune must not create a key: %v", err)
	}
}

func TestPruneToEmptyDeletesKey(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	f := filter.Alliance(99, filter.Victim)
	_ = s.MergeAdd(ctx, f, subscription.NewSet(hook(1), hook(2)))

	if err := s.Prune(ctx, f, subscription.NewSet(hook(1), hook(2))); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := db.Get(mustKey(t, f)); !errors.Is(err, pebblestore.ErrNotFound) {
		t.Fatalf("want key deleted, got %v", err)
	}
	if st := s.Stats(); st.Pruned != 2 || st.Prunes != 1 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestConcurrentMergePruneLinearizable(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	f := filter.Corporation(42, filter.Attacker)

	initial := subscription.NewSet()
	for i := 0; i < 50; i++ {
		initial.Add(hook(i))
	}
	if err := s.MergeAdd(ctx, f, initial); err != nil {
		t.Fatalf("seed: %v", err)
	}

	want := subscription.NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		added := hook(1000 + i)
		want.Add(added)
		go func(sub subscription.Subscription) {
			defer wg.Done()
			if err := s.MergeAdd(ctx, f, subscription.NewSet(sub)); err != nil {
				t.Errorf("merge: %v", err)
			}
		}(added)
		go func(sub subscription.Subscription) {
			defer wg.Done()
			if err := s.Prune(ctx, f, subscription.NewSet(sub)); err != nil {
				t.Errorf("prune: %v", err)
			}
		}(hook(i))
	}
	wg.Wait()

	got, err := s.Get(ctx, f)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("lost update: got %d members want %d", got.Len(), want.Len())
	}
}

func TestCommitRetriesThenSucceeds(t *testing.T) {
	s, _ := newTestStore(t)
	inner := s.commit
	fails := 2
	s.commit = func(ctx context.Context, b *pebble.Batch) error {
		if fails > 0 {
			fails--
			return errors.New("disk hiccup")
		}
		return inner(ctx, b)
	}
	f := filter.System(5)
	if err := s.MergeAdd(context.Background(), f, subscription.NewSet(hook(1))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, _ := s.Get(context.Background(), f)
	if !got.Has(hook(1)) {
		t.Fatalf("merge not applied after retry")
	}
}

func TestCommitFailureReturnsStoreError(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	boom := errors.New("disk gone")
	s.commit = func(context.Context, *pebble.Batch) error {
		calls++
		return boom
	}
	f := filter.Ship(587, filter.Victim)
	err := s.MergeAdd(context.Background(), f, subscription.NewSet(hook(1)))
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("want *StoreError, got %T %v", err, err)
	}
	if se.Op != "merge" || se.Filter != f || !errors.Is(err, boom) {
		t.Fatalf("store error fields: %+v", se)
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts, got %d", calls)
	}
}

func TestWalk(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	filters := []filter.Filter{filter.All(), filter.System(3), filter.Character(1, filter.Victim)}
	for i, f := range filters {
		set := subscription.NewSet()
		for j := 0; j <= i; j++ {
			set.Add(hook(j))
		}
		if err := s.MergeAdd(ctx, f, set); err != nil {
			t.Fatalf("merge: %v", err)
		}
	}

	seen := map[filter.Filter]int{}
	err := s.Walk(ctx, func(f filter.Filter, set subscription.Set) error {
		seen[f] = set.Len()
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	for i, f := range filters {
		if seen[f] != i+1 {
			t.Fatalf("%s: got %d members want %d", f, seen[f], i+1)
		}
	}
}

func TestWalkKindReadsOneKind(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, f := range []filter.Filter{
		filter.All(),
		filter.System(3),
		filter.Ship(587, filter.Attacker),
		filter.Ship(587, filter.Victim),
		filter.Character(587, filter.Attacker),
	} {
		if err := s.MergeAdd(ctx, f, subscription.NewSet(hook(1))); err != nil {
			t.Fatalf("merge: %v", err)
		}
	}

	var got []filter.Filter
	err := s.WalkKind(ctx, filter.KindShip, func(f filter.Filter, _ subscription.Set) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("walk kind: %v", err)
	}
	want := []filter.Filter{filter.Ship(587, filter.Attacker), filter.Ship(587, filter.Victim)}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestStatsIncludeStorageCounters(t *testing.T) {
	counters := &pebblestore.Counters{}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever, Metrics: counters})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	s := New(db, nil, Options{Storage: counters})
	if err := s.MergeAdd(context.Background(), filter.All(), subscription.NewSet(hook(1))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	st := s.Stats()
	if st.Storage == nil || st.Storage.Commits != 1 || st.Storage.Reads != 0 {
		t.Fatalf("storage stats: %+v", st.Storage)
	}

	if plain, _ := newTestStore(t); plain.Stats().Storage != nil {
		t.Fatalf("storage stats without counters should be nil")
	}
}
