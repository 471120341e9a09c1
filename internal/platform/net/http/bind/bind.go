// Package bind maps request query strings onto tagged structs and validates them
package bind

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/validate"
)

// Query fills T's `query`-tagged string, int and bool fields from the URL query,
// then validates T. Absent parameters leave the field at its zero value.
func Query[T any](r *http.Request) (T, error) {
	var zero, dst T
	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return zero, perr.Newf(perr.ErrorCodeUnknown, "bind: %T is not a struct", dst)
	}
	q := r.URL.Query()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		if err := set(rv.Field(i), raw); err != nil {
			return zero, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s %s", name, err.Error()), name)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

var (
	errNotInt      = errors.New("must be an integer")
	errNotBool     = errors.New("must be a boolean")
	errUnsupported = errors.New("has an unsupported type")
)

func set(v reflect.Value, raw string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return errNotInt
		}
		v.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errNotBool
		}
		v.SetBool(b)
	default:
		return errUnsupported
	}
	return nil
}
