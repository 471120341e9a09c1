package fetch

import (
	"context"
	"fmt"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/metrics"
	"catalogsync/internal/services/catalogsync/domain"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWidth is how many numbered pages one batch requests
	DefaultWidth = 20
	// DefaultMaxFailedBatches aborts a run after this many consecutive batches where every page failed
	DefaultMaxFailedBatches = 5
)

// PagePaginator walks numbered pages in fixed-width groups, fetched concurrently.
// A page that still fails after retries is reported and skipped; it never
// counts as empty, so it cannot end the walk.
type PagePaginator struct {
	client      domain.CatalogClient
	seller      string
	policy      Policy
	width       int
	concurrency int
	maxFailed   int

	next        int
	failedInRow int
	done        bool
}

// PageOptions tunes a PagePaginator; zero values take defaults.
// A negative MaxFailedBatches never aborts.
type PageOptions struct {
	Width            int
	Concurrency      int
	MaxFailedBatches int
}

// NewPagePaginator starts at page 1
func NewPagePaginator(c domain.CatalogClient, seller string, p Policy, o PageOptions) *PagePaginator {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Concurrency <= 0 || o.Concurrency > o.Width {
		o.Concurrency = o.Width
	}
	if o.MaxFailedBatches == 0 {
		o.MaxFailedBatches = DefaultMaxFailedBatches
	}
	return &PagePaginator{
		client:      c,
		seller:      seller,
		policy:      p,
		width:       o.Width,
		concurrency: o.Concurrency,
		maxFailed:   o.MaxFailedBatches,
		next:        1,
	}
}

type pageResult struct {
	page domain.Page
	err  error
}

// Next fetches the next group of pages. Records keep page order.
// The walk ends only when every page in a group succeeded with zero raw items.
func (p *PagePaginator) Next(ctx context.Context) (domain.Batch, error) {
	if p.done {
		return domain.Batch{Done: true}, nil
	}

	base := p.next
	results := make([]pageResult, p.width)

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i := range p.width {
		n := base + i
		g.Go(func() error {
			pg, err := retry(ctx, p.policy, fmt.Sprintf("page:%d", n), func(ctx context.Context) (domain.Page, error) {
				return p.client.OffsetPage(ctx, p.seller, n)
			})
			results[i] = pageResult{page: pg, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return domain.Batch{}, err
	}
	p.next += p.width

	var b domain.Batch
	allEmpty := true
	for i, r := range results {
		if r.err != nil {
			b.FailedPages++
			logger.C(ctx).Error().Err(r.err).Int("page", base+i).Msg("page failed after retries, skipping")
			continue
		}
		b.Pages++
		b.Filtered += r.page.Filtered
		b.Rejected += r.page.Rejected
		b.Records = append(b.Records, r.page.Records...)
		if r.page.RawCount > 0 {
			allEmpty = false
		}
	}
	metrics.AddPages(b.Pages, b.FailedPages)

	if b.FailedPages == p.width {
		p.failedInRow++
		if p.maxFailed > 0 && p.failedInRow >= p.maxFailed {
			p.done = true
			return b, perr.WithOp(perr.Unavailablef("%d consecutive batches had every page fail, last started at page %d", p.failedInRow, base), "fetch.pages")
		}
		return b, nil
	}
	p.failedInRow = 0

	if b.FailedPages == 0 && allEmpty {
		p.done = true
		b.Done = true
	}
	return b, nil
}
