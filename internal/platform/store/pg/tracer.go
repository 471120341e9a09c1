package pg

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"catalogsync/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one traced statement
type QueryEvent struct {
	SQL       string
	Args      []any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives QueryEvents
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer prints every statement when LOG_SQL is on, independent of the root level
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Strs("args", summarizeArgs(ev.Args)).
		Err(ev.Err).
		Msg("pg query")
}

// summarizeArgs renders scalars as-is and collapses slices to their length;
// bulk upserts bind arrays of hundreds of values
func summarizeArgs(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			out[i] = "NULL"
			continue
		}
		rv := reflect.ValueOf(a)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			out[i] = fmt.Sprintf("%s[len=%d]", rv.Type().Elem().String(), rv.Len())
			continue
		}
		out[i] = fmt.Sprint(a)
	}
	return out
}

// compact folds runs of whitespace into one space
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
