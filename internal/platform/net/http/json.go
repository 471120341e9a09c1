package http

import (
	"net/http"

	"catalogsync/internal/platform/net/http/bind"
)

// Call adapts a handler without request input. A returned Response is
// written as is, any other value is wrapped in a 200 envelope.
func Call(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return Error(err)
		}
		if resp, ok := out.(Response); ok {
			return resp
		}
		return OK(out)
	})
}

// QueryHandler binds and validates the query string into T before calling fn
func QueryHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Call(func(r *http.Request) (any, error) {
		in, err := bind.Query[T](r)
		if err != nil {
			return nil, err
		}
		return fn(r, in)
	})
}

// GetQuery mounts a query-bound handler under GET
func GetQuery[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Get(path, QueryHandler(h))
}

// PostCall mounts a body-less handler under POST
func PostCall(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, Call(h))
}
