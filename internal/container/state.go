package container

import "fmt"

// Mode is the externally requested intent for a controller.
type Mode int

const (
	// ModeActive starts the service whenever its dependencies allow it.
	ModeActive Mode = iota
	// ModeNever keeps the service down.
	ModeNever
	// ModeRemove stops the service and removes it from the container. It is
	// one-way.
	ModeRemove
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "ACTIVE"
	case ModeNever:
		return "NEVER"
	case ModeRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts the String form of a mode back into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "ACTIVE", "active", "":
		return ModeActive, nil
	case "NEVER", "never":
		return ModeNever, nil
	case "REMOVE", "remove":
		return ModeRemove, nil
	default:
		return ModeActive, fmt.Errorf("unknown mode %q", s)
	}
}

// State is the lifecycle phase a controller is actually in.
type State int

const (
	StateNew State = iota
	StateDown
	StateStarting
	StateStartFailed
	StateUp
	StateStopping
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateDown:
		return "DOWN"
	case StateStarting:
		return "STARTING"
	case StateStartFailed:
		return "START_FAILED"
	case StateUp:
		return "UP"
	case StateStopping:
		return "STOPPING"
	case StateRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// States lists every state in lifecycle order.
func States() []State {
	return []State{StateNew, StateDown, StateStarting, StateStartFailed, StateUp, StateStopping, StateRemoved}
}
