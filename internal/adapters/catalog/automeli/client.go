// Package automeli is the HTTP client for the Automeli product catalog.
// Each call is a single attempt; retries belong to the caller.
package automeli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/services/catalogsync/domain"

	"golang.org/x/time/rate"
)

const (
	productsPath    = "/get-products-cursor/"
	defaultTimeout  = 60 * time.Second
	defaultUA       = "catalogsync"
	defaultBodyMax  = 64 << 20
	defaultListing  = "gold_special"
	defaultAppState = "1"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RPS caps outbound requests per second, zero disables limiting
	RPS   float64
	Burst int

	// ListingTypes keeps only records with these listing types.
	// nil means gold_special only; an empty non-nil slice keeps all.
	ListingTypes []string

	// AppStatus is sent as app_status on every request
	AppStatus string

	// BodyMax bounds a single response body
	BodyMax int64

	HTTP *http.Client
}

// Client talks to the products endpoint
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	listing map[string]struct{}
	log     logger.Logger
	now     func() time.Time
}

// New creates a Client with defaults for anything unset
func New(o Options) (*Client, error) {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		return nil, perr.InvalidArgf("automeli: base url required")
	}
	if _, err := url.ParseRequestURI(o.BaseURL); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "automeli: bad base url %q", o.BaseURL)
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.AppStatus == "" {
		o.AppStatus = defaultAppState
	}
	if o.BodyMax <= 0 {
		o.BodyMax = defaultBodyMax
	}
	if o.ListingTypes == nil {
		o.ListingTypes = []string{defaultListing}
	}

	c := &Client{
		http: o.HTTP,
		opts: o,
		log:  *logger.Named("automeli"),
		now:  time.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: o.Timeout}
	}
	if o.RPS > 0 {
		burst := max(o.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	if len(o.ListingTypes) > 0 {
		c.listing = make(map[string]struct{}, len(o.ListingTypes))
		for _, lt := range o.ListingTypes {
			c.listing[lt] = struct{}{}
		}
	}
	return c, nil
}

// get issues one GET and returns the body of a 200 response.
// Transport failures, 408, 429 and 5xx come back retryable; other statuses are Upstream.
func (c *Client) get(ctx context.Context, q url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.opts.BaseURL + productsPath + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "automeli new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "automeli request failed")
	}
	defer func() { _ = drainAndClose(resp.Body) }()

	c.log.Debug().
		Str("query", q.Encode()).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("automeli http response")

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.BodyMax+1))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "automeli read body failed")
		}
		if int64(len(body)) > c.opts.BodyMax {
			return nil, perr.Upstreamf("automeli response exceeds %d bytes", c.opts.BodyMax)
		}
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "automeli rate limited retry-after=%q", resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		return nil, perr.Newf(perr.ErrorCodeUnavailable, "automeli transient status %d", resp.StatusCode)
	default:
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, perr.Upstreamf("automeli unexpected status %d body %s", resp.StatusCode, strings.TrimSpace(string(tail)))
	}
}

func (c *Client) query(seller string) url.Values {
	q := url.Values{}
	q.Set("seller_id", seller)
	q.Set("app_status", c.opts.AppStatus)
	return q
}

// CursorPage fetches the page after cursor; an empty cursor starts the walk
func (c *Client) CursorPage(ctx context.Context, seller, cursor string) (domain.Page, error) {
	q := c.query(seller)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	body, err := c.get(ctx, q)
	if err != nil {
		return domain.Page{}, err
	}
	return c.decode(body)
}

// OffsetPage fetches the 1-based page number through the aux parameter
func (c *Client) OffsetPage(ctx context.Context, seller string, page int) (domain.Page, error) {
	if page < 1 {
		return domain.Page{}, perr.InvalidArgf("automeli: page must be >= 1, got %d", page)
	}
	q := c.query(seller)
	q.Set("aux", fmt.Sprint(page))
	body, err := c.get(ctx, q)
	if err != nil {
		return domain.Page{}, err
	}
	return c.decode(body)
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

// IsRateLimited reports whether err is the 429 mapping of this client
func IsRateLimited(err error) bool {
	return perr.IsCode(err, perr.ErrorCodeTooManyRequests)
}
