// Package opt provides an optional value type used wherever market data may
// be missing. Absence is a regular value: it flows through every computation
// instead of being replaced by zero or raised as an error.
package opt

import (
	"encoding/json"
	"fmt"
)

// Option holds either a value of type T or nothing.
// The zero Option is None.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps v as a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// FromPtr converts a nil-able pointer into an Option.
func FromPtr[T any](p *T) Option[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// IsSome reports whether a value is present.
func (o Option[T]) IsSome() bool { return o.ok }

// IsNone reports whether the value is absent.
func (o Option[T]) IsNone() bool { return !o.ok }

// Get returns the value and whether it was present.
func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

// UnwrapOr returns the value, or def when absent.
func (o Option[T]) UnwrapOr(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// Or returns o if present, otherwise other.
func (o Option[T]) Or(other Option[T]) Option[T] {
	if o.ok {
		return o
	}
	return other
}

// OrElse returns o if present, otherwise the result of fn.
func (o Option[T]) OrElse(fn func() Option[T]) Option[T] {
	if o.ok {
		return o
	}
	return fn()
}

// Filter keeps the value only if keep reports true for it.
func (o Option[T]) Filter(keep func(T) bool) Option[T] {
	if o.ok && keep(o.value) {
		return o
	}
	return None[T]()
}

// String renders the value or "none".
func (o Option[T]) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprint(o.value)
}

// MarshalJSON encodes an absent value as null.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Map applies fn to a present value.
func Map[T, U any](o Option[T], fn func(T) U) Option[U] {
	if v, ok := o.Get(); ok {
		return Some(fn(v))
	}
	return None[U]()
}

// And returns b when a is present, otherwise None.
func And[T, U any](a Option[T], b Option[U]) Option[U] {
	if a.ok {
		return b
	}
	return None[U]()
}

// AndThen chains a computation that may itself produce no value.
func AndThen[T, U any](o Option[T], fn func(T) Option[U]) Option[U] {
	if v, ok := o.Get(); ok {
		return fn(v)
	}
	return None[U]()
}
