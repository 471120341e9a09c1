package repokit

import "fmt"

// Binder builds a storage over a Queryer. Repos bind once per call so the
// same storage code runs against the pool or inside an open transaction.
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds b to q; a nil q is a wiring bug and panics naming the storage type
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		var zero T
		panic(fmt.Sprintf("repokit: binding %T to a nil Queryer", zero))
	}
	return b.Bind(q)
}
