package container

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giantswarm/conductor/internal/service"
)

func TestErrorKinds(t *testing.T) {
	n := service.MustName("svc")
	err := fmt.Errorf("wrapped: %w", structuralError("install", n, ErrDuplicateService))

	assert.True(t, IsStructural(err))
	assert.False(t, IsUsage(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrDuplicateService)
	assert.Equal(t, "wrapped: install svc: duplicate service name", err.Error())

	assert.Equal(t, "set mode: mode cannot change after removal", usageError("set mode", service.Name{}, ErrModeAfterRemove).Error())
	assert.False(t, IsStructural(errors.New("plain")))
	assert.False(t, IsStructural(nil))
	assert.Equal(t, "usage", KindUsage.String())
}

func TestStartError(t *testing.T) {
	cause := errors.New("port in use")
	err := &StartError{Name: service.MustName("http"), Err: cause}
	assert.Equal(t, "service http failed to start: port in use", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestModeAndStateStrings(t *testing.T) {
	for _, m := range []Mode{ModeActive, ModeNever, ModeRemove} {
		parsed, err := ParseMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "Mode(9)", Mode(9).String())

	var names []string
	for _, s := range States() {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{"NEW", "DOWN", "STARTING", "START_FAILED", "UP", "STOPPING", "REMOVED"}, names)
}

func TestSameListener(t *testing.T) {
	type funcListener struct {
		BaseListener
		fn func()
	}
	a := &BaseListener{}
	assert.True(t, sameListener(a, a))
	// Non-comparable dynamic types never match and never panic.
	assert.False(t, sameListener(funcListener{fn: func() {}}, funcListener{fn: func() {}}))
}
