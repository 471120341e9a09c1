package repokit

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/store"
	kit "catalogsync/internal/platform/testkit"
)

type fakeTag struct{}

func (fakeTag) String() string      { return "SET" }
func (fakeTag) RowsAffected() int64 { return 0 }

// fakeQ records statements
type fakeQ struct {
	sqls []string
	args [][]any
}

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
	return fakeTag{}, nil
}

func (f *fakeQ) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	f.sqls = append(f.sqls, sql)
	return nil, nil
}

func (f *fakeQ) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	f.sqls = append(f.sqls, sql)
	return nil
}

type fakeTx struct {
	fakeQ
	txCalls int
}

func (f *fakeTx) Tx(_ context.Context, fn func(q Queryer) error) error {
	f.txCalls++
	return fn(&f.fakeQ)
}

func TestBindFunc(t *testing.T) {
	b := BindFunc[int](func(Queryer) int { return 7 })
	kit.MustEqual(t, "bind", MustBind[int](b, &fakeQ{}), 7)
	kit.MustPanic(t, func() { _ = MustBind[int](b, nil) })
}

func TestWithBeginHooks_OrderAndShortCircuit(t *testing.T) {
	ctx := context.Background()
	inner := &fakeTx{}
	var seq []string
	h1 := func(context.Context, Queryer) error { seq = append(seq, "h1"); return nil }
	h2 := func(context.Context, Queryer) error { seq = append(seq, "h2"); return nil }

	err := WithBeginHooks(inner, h1, h2).Tx(ctx, func(Queryer) error { seq = append(seq, "fn"); return nil })
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if !reflect.DeepEqual(seq, []string{"h1", "h2", "fn"}) {
		t.Fatalf("order = %v", seq)
	}

	boom := errors.New("boom")
	ran := false
	err = WithBeginHooks(inner, func(context.Context, Queryer) error { return boom }).
		Tx(ctx, func(Queryer) error { ran = true; return nil })
	if !errors.Is(err, boom) || ran {
		t.Fatalf("hook error should stop fn: err=%v ran=%v", err, ran)
	}
}

func TestWithBeginHooks_NoHooksReturnsInner(t *testing.T) {
	inner := &fakeTx{}
	if got := WithBeginHooks(inner); got != TxRunner(inner) {
		t.Fatalf("no hooks should return inner unchanged")
	}
}

func TestStatementTimeout(t *testing.T) {
	inner := &fakeTx{}
	r := WithBeginHooks(inner, StatementTimeout(1500*time.Millisecond), StatementTimeout(0))
	_ = r.Tx(context.Background(), func(q Queryer) error {
		_, err := q.Exec(context.Background(), "SELECT 1")
		return err
	})
	want := []string{"SET LOCAL statement_timeout = 1500", "SELECT 1"}
	if !reflect.DeepEqual(inner.sqls, want) {
		t.Fatalf("statements = %v, want %v", inner.sqls, want)
	}
}

func TestWithTx(t *testing.T) {
	inner := &fakeTx{}
	want := errors.New("fn")
	if err := WithTx(context.Background(), inner, func(Queryer) error { return want }); !errors.Is(err, want) {
		t.Fatalf("WithTx err = %v", err)
	}
	kit.MustEqual(t, "tx calls", inner.txCalls, 1)

	err := WithTx(context.Background(), nil, func(Queryer) error { return nil })
	kit.MustEqual(t, "nil runner", perr.CodeOf(err), perr.ErrorCodeInvalidArgument)
}
