// Package failfast provides small panic-on-violation helpers for invariants
// that the caller is expected to have already guaranteed — a nil key, a
// non-positive capacity, a duplicate registration caught earlier than it
// should have been. These are programmer errors, not recoverable runtime
// conditions, so they surface immediately instead of being wrapped in a
// returned error that might go unchecked.
package failfast

import (
	"fmt"
	"reflect"
)

// If panics with message if condition is false.
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf(message, args...))
	}
}

// NotNil panics if v is nil, including a typed nil pointer, map, slice,
// chan, or func boxed in an interface. Values of non-nillable kinds (e.g.
// string, int, a plain struct) always pass.
func NotNil(v interface{}, name string) {
	if v == nil {
		panic(fmt.Errorf("%s must not be nil", name))
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if rv.IsNil() {
			panic(fmt.Errorf("%s must not be nil", name))
		}
	}
}
