// Package time contains time related helpers
package time

import "time"

// Deref returns the zero time for nil
func Deref(pt *time.Time) time.Time {
	if pt == nil {
		return time.Time{}
	}
	return *pt
}

// Or returns t, or def when t is zero
func Or(t, def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t
}
