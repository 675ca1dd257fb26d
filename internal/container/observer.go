package container

import (
	"time"

	"github.com/giantswarm/conductor/internal/service"
)

// Observer receives low level notifications for metrics. Methods are called
// with controller locks held and must return quickly without calling back
// into the container.
type Observer interface {
	StateChanged(name service.Name, from, to State)
	TaskCompleted(kind TaskKind, duration time.Duration)
	StartFailed(name service.Name)
}

type nopObserver struct{}

func (nopObserver) StateChanged(service.Name, State, State) {}
func (nopObserver) TaskCompleted(TaskKind, time.Duration)   {}
func (nopObserver) StartFailed(service.Name)                {}
