package container

import (
	"errors"
	"fmt"

	"github.com/giantswarm/conductor/internal/service"
)

// Kind classifies container errors by who is expected to act on them.
type Kind int

const (
	// KindStructural errors reject an install or builder call because the
	// requested graph is invalid: duplicate names, bad arguments, cycles.
	KindStructural Kind = iota + 1
	// KindUsage errors signal a programming mistake in the caller, such as
	// mutating an installed builder.
	KindUsage
	// KindNotFound errors report a lookup of an unknown name.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindUsage:
		return "usage"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinel causes carried by Error. Test with errors.Is.
var (
	ErrDuplicateService   = errors.New("duplicate service name")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrCircularDependency = errors.New("circular dependency")
	ErrContainerClosed    = errors.New("container is shut down")

	ErrBuilderInstalled   = errors.New("builder already installed")
	ErrControllerRemoved  = errors.New("controller is removed")
	ErrDuplicateListener  = errors.New("listener already added")
	ErrNotUp              = errors.New("service is not up")
	ErrModeAfterRemove    = errors.New("mode cannot change after removal")
	ErrServiceNotFound    = errors.New("service not found")
	errNoDependencyTarget = errors.New("dependency name must not be empty")
)

// Error is the error type returned by container, builder and controller
// operations. It wraps one of the sentinel errors above, or a more specific
// cause such as a *dependency.CycleError.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Op is the operation that failed, e.g. "install" or "add listener".
	Op string

	// Name is the service the operation concerned, if any.
	Name service.Name

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name.IsZero() {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func structuralError(op string, name service.Name, err error) *Error {
	return &Error{Kind: KindStructural, Op: op, Name: name, Err: err}
}

func usageError(op string, name service.Name, err error) *Error {
	return &Error{Kind: KindUsage, Op: op, Name: name, Err: err}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsStructural reports whether err rejected an invalid graph or argument.
//
// Example:
//
//	if err := b.Install(); container.IsStructural(err) {
//	    // The service was not installed; nothing to clean up.
//	}
func IsStructural(err error) bool {
	return kindOf(err) == KindStructural
}

// IsUsage reports whether err signals misuse of the API.
func IsUsage(err error) bool {
	return kindOf(err) == KindUsage
}

// IsNotFound reports whether err is a lookup of an unknown name.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// StartError records why a service failed to start. It is delivered to
// listeners through ServiceFailed and returned by Controller.StartError; it is
// never returned to the caller of an install or mode change.
type StartError struct {
	Name service.Name
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("service %s failed to start: %v", e.Name, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
