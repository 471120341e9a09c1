package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/store/memkv"
	kit "catalogsync/internal/platform/testkit"
	"catalogsync/internal/services/catalogsync/domain"
	"catalogsync/internal/services/catalogsync/fetch"
	"catalogsync/internal/services/catalogsync/lock"
	"catalogsync/internal/services/catalogsync/state"
)

const seller = "12345"

var fast = fetch.Policy{Attempts: 3, Base: time.Millisecond}

// catalog serves a fixed record list, cursor or offset paginated.
// failPage makes that offset page (or that cursor) fail every attempt.
type catalog struct {
	mu       sync.Mutex
	recs     []domain.SourceRecord
	size     int
	failPage int
	failCur  string
	calls    int
}

func (c *catalog) set(recs ...domain.SourceRecord) {
	c.mu.Lock()
	c.recs = recs
	c.mu.Unlock()
}

func (c *catalog) slice(i int) []domain.SourceRecord {
	if i >= len(c.recs) {
		return nil
	}
	end := min(i+c.size, len(c.recs))
	return append([]domain.SourceRecord(nil), c.recs[i:end]...)
}

func (c *catalog) CursorPage(_ context.Context, _ string, cursor string) (domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failCur != "" && cursor == c.failCur {
		return domain.Page{}, perr.Unavailablef("upstream down")
	}
	var at int
	if cursor != "" {
		_, _ = fmt.Sscanf(cursor, "at-%d", &at)
	}
	recs := c.slice(at)
	next := at + len(recs)
	return domain.Page{
		Records:    recs,
		RawCount:   len(recs),
		NextCursor: fmt.Sprintf("at-%d", next),
		HasMore:    next < len(c.recs),
	}, nil
}

func (c *catalog) OffsetPage(_ context.Context, _ string, page int) (domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if page == c.failPage {
		return domain.Page{}, perr.Unavailablef("upstream down")
	}
	recs := c.slice((page - 1) * c.size)
	return domain.Page{Records: recs, RawCount: len(recs)}, nil
}

// applier records each call and can fail on demand
type applier struct {
	mu    sync.Mutex
	calls [][]domain.TargetUpdateRecord
	err   error
}

func (a *applier) ApplyChanges(_ context.Context, recs []domain.TargetUpdateRecord) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	a.calls = append(a.calls, recs)
	return int64(len(recs)), nil
}

type recorder struct {
	started, finished []domain.SyncStats
	err               error
}

func (r *recorder) StartRun(_ context.Context, s domain.SyncStats) error {
	r.started = append(r.started, s)
	return r.err
}

func (r *recorder) FinishRun(_ context.Context, s domain.SyncStats) error {
	r.finished = append(r.finished, s)
	return r.err
}

type harness struct {
	kv    *memkv.KV
	cat   *catalog
	apply *applier
	rec   *recorder
	orch  *Orchestrator
}

func newHarness(t *testing.T, mode domain.Mode) *harness {
	t.Helper()
	h := &harness{
		kv:    memkv.New(),
		cat:   &catalog{size: 2, failPage: -1},
		apply: &applier{},
		rec:   &recorder{},
	}
	f := fetch.Fetcher{
		Client: h.cat,
		Mode:   mode,
		Policy: fast,
		Pages:  fetch.PageOptions{Width: 2, Concurrency: 2},
	}
	h.orch = New(f, state.New(h.kv), h.apply, lock.New(h.kv, lock.Options{}), h.rec, Config{Seller: seller, Mode: mode})
	return h
}

func rec(sku string, price float64, stock int) domain.SourceRecord {
	return domain.SourceRecord{SKU: sku, SalePrice: price, Stock: stock, Status: "active"}
}

func lockHeld(t *testing.T, h *harness) bool {
	t.Helper()
	_, ok, err := h.kv.Get(context.Background(), lock.DefaultKey)
	if err != nil {
		t.Fatalf("kv get: %v", err)
	}
	return ok
}

func TestRunSync_EmptyCatalog(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModeCursor, domain.ModePages} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness(t, mode)
			st, err := h.orch.RunSync(context.Background())
			if err != nil {
				t.Fatalf("RunSync: %v", err)
			}
			kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeOK)
			kit.MustEqual(t, "fetched", st.Fetched, 0)
			kit.MustEqual(t, "apply calls", len(h.apply.calls), 0)
			kit.MustEqual(t, "fingerprints", len(h.kv.Hash(state.DefaultKey)), 0)
			if lockHeld(t, h) {
				t.Fatal("lock still held after run")
			}
		})
	}
}

func TestRunSync_AllNew(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.size = 10
	h.cat.set(rec("A", 10, 1), rec("B", 20, 2), rec("C", 30, 3))

	st, err := h.orch.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	kit.MustEqual(t, "fetched", st.Fetched, 3)
	kit.MustEqual(t, "changed", st.Changed, 3)
	kit.MustEqual(t, "updated", st.Updated, int64(3))
	kit.MustEqual(t, "hashes", st.HashesUpdated, 3)
	kit.MustEqual(t, "apply calls", len(h.apply.calls), 1)
	kit.MustEqual(t, "apply size", len(h.apply.calls[0]), 3)
	kit.MustEqual(t, "fingerprints", len(h.kv.Hash(state.DefaultKey)), 3)
}

func TestRunSync_LockDenied(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.set(rec("A", 10, 1))

	other := lock.New(h.kv, lock.Options{})
	ok, err := other.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("pre-acquire: %v %v", ok, err)
	}

	st, err := h.orch.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeLockDenied)
	kit.MustEqual(t, "fetched", st.Fetched, 0)
	kit.MustEqual(t, "changed", st.Changed, 0)
	kit.MustEqual(t, "catalog calls", h.cat.calls, 0)
	kit.MustEqual(t, "recorded", len(h.rec.started), 0)
	if !lockHeld(t, h) {
		t.Fatal("denied run must not release the other holder's lock")
	}
}

func TestRunSync_OneChanged(t *testing.T) {
	h := newHarness(t, domain.ModePages)
	h.cat.set(rec("A", 10, 1), rec("B", 20, 2), rec("C", 30, 3))
	ctx := context.Background()

	if _, err := h.orch.RunSync(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	h.apply.calls = nil

	h.cat.set(rec("A", 10, 1), rec("B", 20, 7), rec("C", 30, 3))
	st, err := h.orch.RunSync(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	kit.MustEqual(t, "fetched", st.Fetched, 3)
	kit.MustEqual(t, "changed", st.Changed, 1)
	kit.MustEqual(t, "skipped", st.Skipped, 2)
	kit.MustEqual(t, "apply calls", len(h.apply.calls), 1)
	kit.MustEqual(t, "apply size", len(h.apply.calls[0]), 1)
	kit.MustEqual(t, "sku", h.apply.calls[0][0].SKU, "B")
	kit.MustEqual(t, "stock", h.apply.calls[0][0].Stock, 7)
}

func TestRunSync_Idempotent(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.set(rec("A", 10, 1), rec("B", 20, 2), rec("C", 30, 3))
	ctx := context.Background()

	if _, err := h.orch.RunSync(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	h.apply.calls = nil
	st, err := h.orch.RunSync(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	kit.MustEqual(t, "changed", st.Changed, 0)
	kit.MustEqual(t, "skipped", st.Skipped, 3)
	kit.MustEqual(t, "apply calls", len(h.apply.calls), 0)
}

func TestRunSync_PagesModeSurvivesFailedPage(t *testing.T) {
	h := newHarness(t, domain.ModePages)
	h.cat.size = 1
	h.cat.failPage = 2
	h.cat.set(rec("A", 1, 1), rec("B", 2, 2), rec("C", 3, 3))

	st, err := h.orch.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeOK)
	kit.MustEqual(t, "failed pages", st.FailedPages, 1)
	kit.MustEqual(t, "fetched", st.Fetched, 2)
	if st.Batches < 2 {
		t.Fatalf("a failed batch must not end the stream, batches=%d", st.Batches)
	}
	fps := h.kv.Hash(state.DefaultKey)
	if _, ok := fps["B"]; ok {
		t.Fatal("record from the failed page must not be fingerprinted")
	}
}

func TestRunSync_CursorModeAbortsOnFailedPage(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.failCur = "at-2"
	h.cat.set(rec("A", 1, 1), rec("B", 2, 2), rec("C", 3, 3))

	st, err := h.orch.RunSync(context.Background())
	if !errors.Is(err, fetch.ErrPageFailed) {
		t.Fatalf("want ErrPageFailed, got %v", err)
	}
	kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeFailed)
	kit.MustEqual(t, "fetched", st.Fetched, 2)
	kit.MustEqual(t, "fingerprints", len(h.kv.Hash(state.DefaultKey)), 2)
	if lockHeld(t, h) {
		t.Fatal("lock must be released after a failed run")
	}
	kit.MustEqual(t, "finished recorded", len(h.rec.finished), 1)
	kit.MustEqual(t, "recorded outcome", h.rec.finished[0].Outcome, domain.OutcomeFailed)
}

func TestRunSync_ApplyFailureWritesNoFingerprints(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.set(rec("A", 1, 1))
	h.apply.err = perr.Unavailablef("db down")

	_, err := h.orch.RunSync(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	kit.MustEqual(t, "fingerprints", len(h.kv.Hash(state.DefaultKey)), 0)
	if lockHeld(t, h) {
		t.Fatal("lock must be released")
	}

	// next run retries the same record
	h.apply.err = nil
	st, err := h.orch.RunSync(context.Background())
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	kit.MustEqual(t, "changed", st.Changed, 1)
}

func TestRunSync_FingerprintWriteFailureAfterApply(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.set(rec("A", 1, 1))
	h.kv.FailOn("HSet", errors.New("redis readonly"))

	st, err := h.orch.RunSync(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeFailed)
	kit.MustEqual(t, "applied", len(h.apply.calls), 1)
	kit.MustEqual(t, "updated", st.Updated, int64(1))
	kit.MustEqual(t, "hashes updated", st.HashesUpdated, 0)
	kit.MustEqual(t, "fingerprints", len(h.kv.Hash(state.DefaultKey)), 0)
	if lockHeld(t, h) {
		t.Fatal("lock must be released")
	}

	// the record stays unrecorded, so the next run detects and applies it again
	h.kv.FailOn("HSet", nil)
	st, err = h.orch.RunSync(context.Background())
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	kit.MustEqual(t, "changed", st.Changed, 1)
	kit.MustEqual(t, "applied again", len(h.apply.calls), 2)
	kit.MustEqual(t, "second apply sku", h.apply.calls[1][0].SKU, "A")
	kit.MustEqual(t, "hashes updated", st.HashesUpdated, 1)
}

func TestRunSync_LockErrorFails(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.kv.FailWith(errors.New("connection refused"))

	st, err := h.orch.RunSync(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeFailed)
	kit.MustEqual(t, "catalog calls", h.cat.calls, 0)
}

func TestRunSync_ReleaseSurvivesCancel(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.set(rec("A", 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	h.orch.Apply = applyFunc(func(context.Context, []domain.TargetUpdateRecord) (int64, error) {
		cancel()
		return 0, context.Canceled
	})

	_, err := h.orch.RunSync(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
	if lockHeld(t, h) {
		t.Fatal("lock must be released on a detached context")
	}
}

func TestRunSync_RecorderFailureIgnored(t *testing.T) {
	h := newHarness(t, domain.ModeCursor)
	h.cat.set(rec("A", 1, 1))
	h.rec.err = errors.New("history table missing")

	st, err := h.orch.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	kit.MustEqual(t, "outcome", st.Outcome, domain.OutcomeOK)
	kit.MustEqual(t, "started", len(h.rec.started), 1)
	kit.MustEqual(t, "run id", h.rec.started[0].RunID, st.RunID)
}

func TestRunSync_NilDepsPanic(t *testing.T) {
	kit.MustPanic(t, func() { New(nil, nil, nil, nil, nil, Config{}) })
}

type applyFunc func(context.Context, []domain.TargetUpdateRecord) (int64, error)

func (f applyFunc) ApplyChanges(ctx context.Context, r []domain.TargetUpdateRecord) (int64, error) {
	return f(ctx, r)
}
