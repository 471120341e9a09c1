package domain

import "context"

// Page is one remote page after boundary mapping. RawCount is the item count
// the remote returned before filtering, used for end-of-stream decisions.
type Page struct {
	Records    []SourceRecord
	RawCount   int
	Filtered   int
	Rejected   int
	NextCursor string
	HasMore    bool
}

// CatalogClient fetches single pages from the remote catalog, one attempt each
type CatalogClient interface {
	CursorPage(ctx context.Context, seller, cursor string) (Page, error)
	OffsetPage(ctx context.Context, seller string, page int) (Page, error)
}

// Batch is what one paginator step yields: the records of one page (cursor
// mode) or of one fixed-width group of pages (pages mode)
type Batch struct {
	Records     []SourceRecord
	Pages       int
	FailedPages int
	Filtered    int
	Rejected    int
	Done        bool
}

// Paginator walks the catalog for a single run
type Paginator interface {
	Next(ctx context.Context) (Batch, error)
}

// Fetcher starts a fresh walk
type Fetcher interface {
	Paginate(seller string) Paginator
}

// StateStore maps sku to the fingerprint last applied downstream
type StateStore interface {
	Get(ctx context.Context, skus []string) (map[string]Fingerprint, error)
	Set(ctx context.Context, fps map[string]Fingerprint) error
}

// RunLock serializes runs
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Applier upserts changed records into the target store
type Applier interface {
	ApplyChanges(ctx context.Context, recs []TargetUpdateRecord) (int64, error)
}

// RunRecorder persists run history; failures never change a run's outcome
type RunRecorder interface {
	StartRun(ctx context.Context, s SyncStats) error
	FinishRun(ctx context.Context, s SyncStats) error
}

// RunLister reads run history
type RunLister interface {
	ListRuns(ctx context.Context, seller string, limit, offset int) ([]SyncStats, error)
}

// Launcher starts a run detached from the caller and returns its run id
type Launcher interface {
	Launch(ctx context.Context) (string, error)
}
