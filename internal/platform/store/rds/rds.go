// Package rds opens go-redis clients with optional command tracing
package rds

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Config configures a single-node redis client
type Config struct {
	URL  string
	DB   int // overrides the db in URL when >= 0
	Name string
}

// Client is a redis client with its optional tracer
type Client struct {
	*redis.Client
	Tracer CommandTracer
}

var newClient = redis.NewClient

// Open parses a redis:// or rediss:// URL and builds the client; no I/O happens here
func Open(_ context.Context, cfg Config, tracer CommandTracer) (*Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, err
	}
	if cfg.DB >= 0 {
		opt.DB = cfg.DB
	}
	if cfg.Name != "" {
		opt.ClientName = cfg.Name
	}
	// go-redis retries network errors per command; anything longer belongs to callers
	opt.MaxRetries = 3

	c := newClient(opt)
	if tracer != nil {
		c.AddHook(hook{t: tracer})
	}
	return &Client{Client: c, Tracer: tracer}, nil
}

// Close closes the underlying client
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
