// Package fetch turns single-attempt catalog calls into retried, paginated batches
package fetch

import (
	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/services/catalogsync/domain"
)

// ErrPageFailed marks a page that still failed after every retry
var ErrPageFailed = perr.New(perr.ErrorCodeUnavailable, "page failed after retries")

// Fetcher builds a fresh paginator per run for the configured mode
type Fetcher struct {
	Client domain.CatalogClient
	Mode   domain.Mode
	Policy Policy
	Pages  PageOptions
}

var _ domain.Fetcher = Fetcher{}

// Paginate starts a new walk for seller
func (f Fetcher) Paginate(seller string) domain.Paginator {
	pol := f.Policy
	if pol.Attempts <= 0 {
		pol.Attempts = DefaultPolicy.Attempts
	}
	if pol.Base <= 0 {
		pol.Base = DefaultPolicy.Base
	}
	if f.Mode == domain.ModePages {
		return NewPagePaginator(f.Client, seller, pol, f.Pages)
	}
	return NewCursorPaginator(f.Client, seller, pol)
}
