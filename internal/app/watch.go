package app

import (
	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/pkg/logging"
)

// newEventLogger returns a listener logging every lifecycle event.
func newEventLogger() container.Listener {
	fn := container.ListenerFunc(func(ev container.Event) {
		name := ev.Controller.Name()
		if ev.Err != nil {
			logging.Error("Watch", ev.Err, "%s: %s", name, ev.Kind)
			return
		}
		logging.Info("Watch", "%s: %s (%s)", name, ev.Kind, ev.Controller.State())
	})
	return &fn
}
