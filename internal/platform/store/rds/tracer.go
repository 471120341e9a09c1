package rds

import (
	"context"
	"net"
	"strings"
	"time"

	"catalogsync/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CommandEvent describes one command or pipeline round trip
type CommandEvent struct {
	Name      string
	Keys      int
	ElapsedUS int64
	Err       error
}

// CommandTracer receives CommandEvents
type CommandTracer interface {
	OnCommand(ctx context.Context, ev CommandEvent)
}

// Tracer logs every command at info regardless of the root level
func Tracer(root logger.Logger) CommandTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "redis").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnCommand(_ context.Context, ev CommandEvent) {
	evt := z.log.Info()
	if ev.Err != nil {
		evt = z.log.Warn()
	}
	evt.Str("cmd", ev.Name).
		Int("args", ev.Keys).
		Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Err(ev.Err).
		Msg("redis cmd")
}

// hook adapts go-redis hooks onto a CommandTracer; argument values are never logged
type hook struct{ t CommandTracer }

func (h hook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) { return next(ctx, network, addr) }
}

func (h hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.t.OnCommand(ctx, CommandEvent{
			Name:      strings.ToUpper(cmd.Name()),
			Keys:      len(cmd.Args()) - 1,
			ElapsedUS: time.Since(start).Microseconds(),
			Err:       ignoreNil(err),
		})
		return err
	}
}

func (h hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		names := make([]string, 0, len(cmds))
		args := 0
		for _, c := range cmds {
			names = append(names, strings.ToUpper(c.Name()))
			args += len(c.Args()) - 1
		}
		h.t.OnCommand(ctx, CommandEvent{
			Name:      "PIPELINE " + strings.Join(names, ","),
			Keys:      args,
			ElapsedUS: time.Since(start).Microseconds(),
			Err:       ignoreNil(err),
		})
		return err
	}
}

func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}
