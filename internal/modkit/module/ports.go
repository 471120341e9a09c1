package module

import "reflect"

// PortsOf finds a T in m's ports: the bundle itself, or the first exported
// field of a struct (or pointer to struct) bundle that holds a T
func PortsOf[T any](m Module) (T, bool) {
	var zero T
	p := m.Ports()
	if p == nil {
		return zero, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}
	rv := reflect.Indirect(reflect.ValueOf(p))
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	for _, f := range reflect.VisibleFields(rv.Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if v, ok := rv.FieldByIndex(f.Index).Interface().(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustPortsOf is PortsOf for composition code; a missing port panics naming the module
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	var zero T
	panic("module: " + m.Name() + " exposes no " + reflect.TypeOf(&zero).Elem().String())
}
