package container

import "context"

type controllerKey struct{}

func withController(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, controllerKey{}, c)
}

// ControllerFromContext returns the controller whose Start or Stop received
// ctx.
func ControllerFromContext(ctx context.Context) (*Controller, bool) {
	c, ok := ctx.Value(controllerKey{}).(*Controller)
	return c, ok
}
