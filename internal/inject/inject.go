// Package inject binds values produced by one service into another.
//
// An Injector receives a value when its owner starts and is reset when the
// owner stops. Bindings are explicit function values; there is no reflective
// lookup of fields or methods.
package inject

import (
	"fmt"
	"reflect"
)

// Injector binds a value into a consumer.
type Injector interface {
	// Inject binds value. An error aborts the owner's start.
	Inject(value any) error
	// Uninject reverts the most recent Inject.
	Uninject()
}

// TypeError is returned when an injected value does not have the type the
// injector expects.
type TypeError struct {
	Want reflect.Type
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot inject value of type %T into %s", e.Got, e.Want)
}

func cast[T any](value any) (T, error) {
	var zero T
	if value == nil {
		// A nil value binds the zero value for interface, pointer, map,
		// slice, channel and function targets.
		switch reflect.TypeFor[T]().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return zero, nil
		}
		return zero, &TypeError{Want: reflect.TypeFor[T](), Got: value}
	}
	v, ok := value.(T)
	if !ok {
		return zero, &TypeError{Want: reflect.TypeFor[T](), Got: value}
	}
	return v, nil
}

// Field stores the injected value directly into dst.
func Field[T any](dst *T) Injector {
	return &fieldInjector[T]{dst: dst}
}

type fieldInjector[T any] struct {
	dst *T
}

func (f *fieldInjector[T]) Inject(value any) error {
	v, err := cast[T](value)
	if err != nil {
		return err
	}
	*f.dst = v
	return nil
}

func (f *fieldInjector[T]) Uninject() {
	var zero T
	*f.dst = zero
}

// Setter passes the injected value to set. On uninject set receives the
// zero value of T.
func Setter[T any](set func(T)) Injector {
	return &setterInjector[T]{set: set}
}

type setterInjector[T any] struct {
	set func(T)
}

func (s *setterInjector[T]) Inject(value any) error {
	v, err := cast[T](value)
	if err != nil {
		return err
	}
	s.set(v)
	return nil
}

func (s *setterInjector[T]) Uninject() {
	var zero T
	s.set(zero)
}

// Computed converts the injected value with convert and hands the result to
// next.
func Computed[S, T any](convert func(S) (T, error), next Injector) Injector {
	return &computedInjector[S, T]{convert: convert, next: next}
}

type computedInjector[S, T any] struct {
	convert func(S) (T, error)
	next    Injector
}

func (c *computedInjector[S, T]) Inject(value any) error {
	src, err := cast[S](value)
	if err != nil {
		return err
	}
	out, err := c.convert(src)
	if err != nil {
		return fmt.Errorf("computing injected value: %w", err)
	}
	return c.next.Inject(out)
}

func (c *computedInjector[S, T]) Uninject() {
	c.next.Uninject()
}
