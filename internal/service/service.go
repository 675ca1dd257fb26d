package service

import (
	"context"
)

// Service is the unit of work managed by a controller.
//
// Start is called once all required dependencies are up. A returned error or
// a panic is contained by the controller and reported as a start failure.
// Stop is called before the service goes down; its error is logged but never
// prevents the transition. Value returns whatever the service exposes to its
// dependents and is only consulted while the service is up.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Value() (any, error)
}

// Null is a service that does nothing and has a nil value.
var Null Service = nullService{}

type nullService struct{}

func (nullService) Start(context.Context) error { return nil }
func (nullService) Stop(context.Context) error  { return nil }
func (nullService) Value() (any, error)         { return nil, nil }

// Const returns a service with no start or stop behaviour whose value is v.
func Const(v any) Service {
	return constService{value: v}
}

type constService struct {
	nullService
	value any
}

func (s constService) Value() (any, error) { return s.value, nil }

// Funcs adapts plain functions to the Service interface. Nil functions are
// treated as no-ops.
type Funcs struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
	ValueFunc func() (any, error)
}

func (f Funcs) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f Funcs) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

func (f Funcs) Value() (any, error) {
	if f.ValueFunc == nil {
		return nil, nil
	}
	return f.ValueFunc()
}
