package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	perr "catalogsync/internal/platform/errors"
	kit "catalogsync/internal/platform/testkit"
	"catalogsync/internal/services/catalogsync/domain"
)

var fast = Policy{Attempts: 3, Base: time.Millisecond}

// fakeClient serves scripted pages; failures[key] counts how many calls fail before success
type fakeClient struct {
	mu       sync.Mutex
	cursors  map[string]domain.Page
	pages    map[int]domain.Page
	failures map[string]int
	err      error
	calls    map[string]int
}

func newFake() *fakeClient {
	return &fakeClient{
		cursors:  map[string]domain.Page{},
		pages:    map[int]domain.Page{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
}

func (f *fakeClient) hit(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if f.failures[key] < 0 || f.calls[key] <= f.failures[key] {
		if f.err != nil {
			return f.err
		}
		return perr.Unavailablef("boom %s", key)
	}
	return nil
}

func (f *fakeClient) CursorPage(_ context.Context, _ string, cursor string) (domain.Page, error) {
	if err := f.hit("c:" + cursor); err != nil {
		return domain.Page{}, err
	}
	return f.cursors[cursor], nil
}

func (f *fakeClient) OffsetPage(_ context.Context, _ string, page int) (domain.Page, error) {
	if err := f.hit(fmt.Sprintf("p:%d", page)); err != nil {
		return domain.Page{}, err
	}
	return f.pages[page], nil
}

func recs(skus ...string) []domain.SourceRecord {
	out := make([]domain.SourceRecord, len(skus))
	for i, s := range skus {
		out[i] = domain.SourceRecord{SKU: s}
	}
	return out
}

func TestRetry_SucceedsWithinAttempts(t *testing.T) {
	calls := 0
	v, err := retry(context.Background(), fast, "x", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("retry = %d, %v", v, err)
	}
	kit.MustEqual(t, "calls", calls, 3)
}

func TestRetry_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), fast, "x", func(context.Context) (int, error) {
		calls++
		return 0, perr.Unavailablef("down")
	})
	if err == nil {
		t.Fatalf("want error")
	}
	kit.MustEqual(t, "calls", calls, 3)
}

func TestRetry_PermanentStopsEarly(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), fast, "x", func(context.Context) (int, error) {
		calls++
		return 0, perr.Upstreamf("404")
	})
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}
	kit.MustEqual(t, "calls", calls, 1)
}

func TestRetry_WaitsDoubling(t *testing.T) {
	var stamps []time.Time
	p := Policy{Attempts: 3, Base: 20 * time.Millisecond}
	_, _ = retry(context.Background(), p, "x", func(context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("no")
	})
	if len(stamps) != 3 {
		t.Fatalf("attempts = %d", len(stamps))
	}
	first, second := stamps[1].Sub(stamps[0]), stamps[2].Sub(stamps[1])
	if first < 20*time.Millisecond || second < 40*time.Millisecond {
		t.Fatalf("waits too short: %v, %v", first, second)
	}
}

func TestCursor_WalksUntilHasMoreFalse(t *testing.T) {
	f := newFake()
	f.cursors[""] = domain.Page{Records: recs("A", "B"), RawCount: 2, NextCursor: "c2", HasMore: true}
	f.cursors["c2"] = domain.Page{Records: recs("C"), RawCount: 1, NextCursor: "c3", HasMore: false}

	p := NewCursorPaginator(f, "s", fast)
	ctx := context.Background()

	b1, err := p.Next(ctx)
	if err != nil || b1.Done || len(b1.Records) != 2 {
		t.Fatalf("first batch = %+v, %v", b1, err)
	}
	b2, err := p.Next(ctx)
	if err != nil || !b2.Done || len(b2.Records) != 1 {
		t.Fatalf("last batch should carry records and Done: %+v, %v", b2, err)
	}
	b3, _ := p.Next(ctx)
	if !b3.Done || len(b3.Records) != 0 {
		t.Fatalf("after done: %+v", b3)
	}
	kit.MustEqual(t, "c2 calls", f.calls["c:c2"], 1)
}

func TestCursor_EndsOnEmptyCursor(t *testing.T) {
	f := newFake()
	f.cursors[""] = domain.Page{Records: recs("A"), RawCount: 1, NextCursor: "", HasMore: true}
	b, err := NewCursorPaginator(f, "s", fast).Next(context.Background())
	if err != nil || !b.Done {
		t.Fatalf("null next cursor should end: %+v, %v", b, err)
	}
}

func TestCursor_EmptyPageWithHasMoreContinues(t *testing.T) {
	f := newFake()
	f.cursors[""] = domain.Page{RawCount: 0, NextCursor: "c2", HasMore: true}
	f.cursors["c2"] = domain.Page{Records: recs("A", "B"), RawCount: 2, HasMore: false}
	p := NewCursorPaginator(f, "s", fast)

	b, err := p.Next(context.Background())
	if err != nil || b.Done {
		t.Fatalf("empty page with has_more must not end the walk: %+v, %v", b, err)
	}
	b, err = p.Next(context.Background())
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	kit.MustEqual(t, "records behind empty page", len(b.Records), 2)
	kit.MustEqual(t, "done", b.Done, true)
}

func TestCursor_FilteredPageDoesNotEndStream(t *testing.T) {
	f := newFake()
	f.cursors[""] = domain.Page{RawCount: 3, Filtered: 3, NextCursor: "c2", HasMore: true}
	f.cursors["c2"] = domain.Page{Records: recs("Z"), RawCount: 1, HasMore: false}
	p := NewCursorPaginator(f, "s", fast)
	b, err := p.Next(context.Background())
	if err != nil || b.Done {
		t.Fatalf("a page whose items were all filtered must not end the walk: %+v, %v", b, err)
	}
	kit.MustEqual(t, "filtered", b.Filtered, 3)
	b, _ = p.Next(context.Background())
	kit.MustEqual(t, "second page records", len(b.Records), 1)
}

func TestCursor_RetriesThenFailsRun(t *testing.T) {
	f := newFake()
	f.cursors[""] = domain.Page{Records: recs("A"), RawCount: 1, NextCursor: "c2", HasMore: true}
	f.failures["c:c2"] = -1
	p := NewCursorPaginator(f, "s", fast)
	ctx := context.Background()
	if _, err := p.Next(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}
	b, err := p.Next(ctx)
	if !errors.Is(err, ErrPageFailed) {
		t.Fatalf("exhausted retries must fail the walk with ErrPageFailed, got %v", err)
	}
	kit.MustEqual(t, "failed pages", b.FailedPages, 1)
	kit.MustEqual(t, "attempts", f.calls["c:c2"], 3)
}

func TestCursor_RepeatedCursorIsAnError(t *testing.T) {
	f := newFake()
	f.cursors[""] = domain.Page{Records: recs("A"), RawCount: 1, NextCursor: "c2", HasMore: true}
	f.cursors["c2"] = domain.Page{Records: recs("B"), RawCount: 1, NextCursor: "c2", HasMore: true}
	p := NewCursorPaginator(f, "s", fast)
	_, _ = p.Next(context.Background())
	if _, err := p.Next(context.Background()); !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("want upstream error for a cursor cycle, got %v", err)
	}
}

func TestPages_BatchAndEnd(t *testing.T) {
	f := newFake()
	f.pages[1] = domain.Page{Records: recs("A"), RawCount: 1}
	f.pages[3] = domain.Page{Records: recs("C"), RawCount: 1}
	p := NewPagePaginator(f, "s", fast, PageOptions{Width: 3})
	ctx := context.Background()

	b, err := p.Next(ctx)
	if err != nil || b.Done {
		t.Fatalf("first batch: %+v, %v", b, err)
	}
	kit.MustEqual(t, "pages", b.Pages, 3)
	if len(b.Records) != 2 || b.Records[0].SKU != "A" || b.Records[1].SKU != "C" {
		t.Fatalf("records out of page order: %+v", b.Records)
	}

	b, err = p.Next(ctx)
	if err != nil || !b.Done {
		t.Fatalf("empty batch should end: %+v, %v", b, err)
	}
	kit.MustEqual(t, "page 6 fetched", f.calls["p:6"], 1)
	if _, seen := f.calls["p:7"]; seen {
		t.Fatalf("must not fetch past the empty batch")
	}
}

func TestPages_FailedPageIsNotEmpty(t *testing.T) {
	f := newFake()
	f.failures["p:2"] = -1
	p := NewPagePaginator(f, "s", fast, PageOptions{Width: 3})
	ctx := context.Background()

	b, err := p.Next(ctx)
	if err != nil {
		t.Fatalf("a failed page should not fail the batch: %v", err)
	}
	if b.Done {
		t.Fatalf("a batch with a failed page is never the end")
	}
	kit.MustEqual(t, "failed", b.FailedPages, 1)
	kit.MustEqual(t, "ok", b.Pages, 2)
	kit.MustEqual(t, "attempts on page 2", f.calls["p:2"], 3)

	b, err = p.Next(ctx)
	if err != nil || !b.Done {
		t.Fatalf("next all-empty batch should end: %+v, %v", b, err)
	}
}

func TestPages_AbortsAfterConsecutiveFailedBatches(t *testing.T) {
	f := newFake()
	for i := 1; i <= 6; i++ {
		f.failures[fmt.Sprintf("p:%d", i)] = -1
	}
	p := NewPagePaginator(f, "s", Policy{Attempts: 1, Base: time.Millisecond}, PageOptions{Width: 2, MaxFailedBatches: 3})
	ctx := context.Background()
	for i := range 2 {
		if _, err := p.Next(ctx); err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
	}
	if _, err := p.Next(ctx); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("third all-failed batch should abort, got %v", err)
	}
}

func TestPages_ConcurrencyLimit(t *testing.T) {
	c := &gate{max: 0}
	p := NewPagePaginator(c, "s", fast, PageOptions{Width: 8, Concurrency: 2})
	if _, err := p.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if c.max > 2 {
		t.Fatalf("observed %d concurrent calls, limit 2", c.max)
	}
}

type gate struct {
	mu       sync.Mutex
	inflight int
	max      int
}

func (g *gate) CursorPage(context.Context, string, string) (domain.Page, error) {
	return domain.Page{}, nil
}

func (g *gate) OffsetPage(context.Context, string, int) (domain.Page, error) {
	g.mu.Lock()
	g.inflight++
	g.max = max(g.max, g.inflight)
	g.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()
	return domain.Page{}, nil
}

func TestPages_CanceledContext(t *testing.T) {
	f := newFake()
	p := NewPagePaginator(f, "s", fast, PageOptions{Width: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestFetcher_SelectsMode(t *testing.T) {
	f := newFake()
	if _, ok := (Fetcher{Client: f, Mode: domain.ModeCursor}).Paginate("s").(*CursorPaginator); !ok {
		t.Fatalf("cursor mode should build a CursorPaginator")
	}
	pp, ok := (Fetcher{Client: f, Mode: domain.ModePages}).Paginate("s").(*PagePaginator)
	if !ok {
		t.Fatalf("pages mode should build a PagePaginator")
	}
	kit.MustEqual(t, "default width", pp.width, DefaultWidth)
	kit.MustEqual(t, "default attempts", pp.policy.Attempts, 3)
}
