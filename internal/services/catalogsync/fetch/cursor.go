package fetch

import (
	"context"
	"fmt"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/metrics"
	"catalogsync/internal/services/catalogsync/domain"
)

// CursorPaginator walks an opaque-cursor stream one page per batch.
// A page that still fails after retries fails the run: the stream cannot skip ahead.
type CursorPaginator struct {
	client domain.CatalogClient
	seller string
	policy Policy

	cursor string
	seen   map[string]struct{}
	done   bool
}

// NewCursorPaginator starts a walk from the beginning of the stream
func NewCursorPaginator(c domain.CatalogClient, seller string, p Policy) *CursorPaginator {
	return &CursorPaginator{client: c, seller: seller, policy: p, seen: map[string]struct{}{}}
}

// Next fetches the page at the current cursor.
// The stream ends when has_more is false or the next cursor is empty; the final
// page's records are still returned. An empty page with has_more set is walked past.
func (p *CursorPaginator) Next(ctx context.Context) (domain.Batch, error) {
	if p.done {
		return domain.Batch{Done: true}, nil
	}

	label := "cursor:" + p.cursor
	page, err := retry(ctx, p.policy, label, func(ctx context.Context) (domain.Page, error) {
		return p.client.CursorPage(ctx, p.seller, p.cursor)
	})
	if err != nil {
		metrics.AddPages(0, 1)
		p.done = true
		return domain.Batch{FailedPages: 1}, fmt.Errorf("%w: cursor %q: %w", ErrPageFailed, p.cursor, err)
	}
	metrics.AddPages(1, 0)

	b := domain.Batch{
		Records:  page.Records,
		Pages:    1,
		Filtered: page.Filtered,
		Rejected: page.Rejected,
	}
	if !page.HasMore || page.NextCursor == "" {
		p.done = true
		b.Done = true
		return b, nil
	}
	if _, dup := p.seen[page.NextCursor]; dup || page.NextCursor == p.cursor {
		p.done = true
		return b, perr.Upstreamf("cursor %q repeated, stream would not terminate", page.NextCursor)
	}
	p.seen[p.cursor] = struct{}{}
	p.cursor = page.NextCursor
	return b, nil
}
