package errors

// Redis helpers: classify go-redis failures for the state store and run lock

import (
	"context"
	stderrs "errors"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

// IsRedisNil reports the go-redis "key does not exist" reply
func IsRedisNil(err error) bool { return stderrs.Is(err, redis.Nil) }

// FromRedis wraps a redis failure as Unavailable; redis.Nil and nil pass through as nil
func FromRedis(err error, msg string) error {
	if err == nil || IsRedisNil(err) {
		return nil
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrorCodeUnavailable, msg+" (canceled)")
	}
	return Wrap(err, ErrorCodeUnavailable, msg)
}

// IsRedisRetryable reports connection level failures and server replies that clear on their own
func IsRedisRetryable(err error) bool {
	if err == nil || IsRedisNil(err) {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if stderrs.As(err, &ne) {
		return true
	}
	var re redis.Error
	if stderrs.As(err, &re) {
		msg := re.Error()
		for _, p := range []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN"} {
			if strings.HasPrefix(msg, p) {
				return true
			}
		}
	}
	return false
}
