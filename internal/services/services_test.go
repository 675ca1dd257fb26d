package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/dependency"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/internal/testing/recorder"
	"github.com/giantswarm/conductor/pkg/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newContainer(t *testing.T) *container.Container {
	t.Helper()
	ct := container.New(container.WithWorkers(4))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, ct.Shutdown(ctx))
	})
	return ct
}

func settle(t *testing.T, ct *container.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ct.AwaitStability(ctx))
}

func TestScripted(t *testing.T) {
	s := NewScripted(service.MustName("db"), config.ServiceConfig{FailStarts: 1, Value: "dsn"})

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Running())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.Running())

	starts, stops := s.Attempts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "dsn", v)
}

func TestScriptedDelayHonoursContext(t *testing.T) {
	s := NewScripted(service.MustName("slow"), config.ServiceConfig{StartDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}

func TestCheck(t *testing.T) {
	specs := []config.ServiceConfig{
		{Name: "api", Dependencies: []string{"sql"}, OptionalDependencies: []string{"cache"}},
		{Name: "db", Aliases: []string{"sql"}},
		{Name: "worker", Dependencies: []string{"api", "queue"}},
	}

	plan, err := Check(specs)
	require.NoError(t, err)
	assert.Equal(t, []service.Name{service.MustName("db"), service.MustName("api"), service.MustName("worker")}, plan.Order)
	assert.Equal(t, []service.Name{service.MustName("cache"), service.MustName("queue")}, plan.Unresolved)
}

func TestCheckReportsCycle(t *testing.T) {
	specs := []config.ServiceConfig{
		{Name: "a", Dependencies: []string{"b"}},
		{Name: "b", Aliases: []string{"beta"}, Dependencies: []string{"c"}},
		{Name: "c", Dependencies: []string{"beta"}},
	}

	_, err := Check(specs)
	var cycle *dependency.CycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
	assert.Contains(t, err.Error(), "beta")
}

func TestInstall(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	specs := []config.ServiceConfig{
		{Name: "api", Mode: "ACTIVE", Dependencies: []string{"sql"}},
		{Name: "db", Mode: "ACTIVE", Aliases: []string{"sql"}, Value: "postgres"},
		{Name: "batch", Mode: "NEVER", Dependencies: []string{"db"}},
	}

	scripted, err := Install(ct, specs, rec)
	require.NoError(t, err)
	require.Len(t, scripted, 3)
	settle(t, ct)

	api, err := ct.Service(service.MustName("api"))
	require.NoError(t, err)
	assert.Equal(t, container.StateUp, api.State())
	assert.True(t, scripted[service.MustName("db")].Running())

	batch, err := ct.Service(service.MustName("batch"))
	require.NoError(t, err)
	assert.Equal(t, container.StateDown, batch.State())
	assert.Equal(t, 0, rec.Count(service.MustName("api"), container.EventDependencyUninstalled))
}

func TestRetrier(t *testing.T) {
	ct := newContainer(t)
	retrier := NewRetrier(time.Millisecond, 3)
	defer retrier.Stop()
	specs := []config.ServiceConfig{
		{Name: "flaky", Mode: "ACTIVE", FailStarts: 2},
		{Name: "hopeless", Mode: "ACTIVE", FailStarts: 10},
	}

	scripted, err := Install(ct, specs, retrier)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		require.NoError(t, ct.AwaitStability(ctx))
		if retrier.Pending() == 0 {
			break
		}
		require.NoError(t, retrier.Wait(ctx))
	}

	flaky, err := ct.Service(service.MustName("flaky"))
	require.NoError(t, err)
	assert.Equal(t, container.StateUp, flaky.State())
	starts, _ := scripted[service.MustName("flaky")].Attempts()
	assert.Equal(t, 3, starts)

	hopeless, err := ct.Service(service.MustName("hopeless"))
	require.NoError(t, err)
	assert.Equal(t, container.StateStartFailed, hopeless.State())
	starts, _ = scripted[service.MustName("hopeless")].Attempts()
	assert.Equal(t, 4, starts)
}

func TestCompare(t *testing.T) {
	current := []config.ServiceConfig{
		{Name: "db", Mode: "ACTIVE"},
		{Name: "api", Mode: "ACTIVE", Dependencies: []string{"db"}},
		{Name: "legacy", Mode: "ACTIVE"},
	}
	desired := []config.ServiceConfig{
		{Name: "db", Mode: "NEVER"},
		{Name: "api", Mode: "ACTIVE", Dependencies: []string{"db"}, OptionalDependencies: []string{"cache"}},
		{Name: "cache", Mode: "ACTIVE"},
	}

	diff := Compare(current, desired)
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "cache", diff.Added[0].Name)
	assert.Equal(t, []service.Name{service.MustName("legacy")}, diff.Removed)
	require.Len(t, diff.Replaced, 1)
	assert.Equal(t, "api", diff.Replaced[0].Name)
	assert.Equal(t, map[service.Name]container.Mode{service.MustName("db"): container.ModeNever}, diff.Modes)
	assert.Equal(t, "1 added, 1 removed, 1 replaced, 1 mode change(s)", diff.String())

	assert.True(t, Compare(desired, desired).Empty())
}

func TestReconcilerApply(t *testing.T) {
	ct := newContainer(t)
	rec := recorder.New()
	r := NewReconciler(ct, rec)
	ctx := context.Background()
	api, db, cache := service.MustName("api"), service.MustName("db"), service.MustName("cache")

	stateOf := func(n service.Name) container.State {
		t.Helper()
		c, err := ct.Service(n)
		require.NoError(t, err)
		return c.State()
	}

	_, err := r.Apply(ctx, []config.ServiceConfig{
		{Name: "db", Mode: "ACTIVE", Aliases: []string{"sql"}, Value: "v1"},
		{Name: "api", Mode: "ACTIVE", Dependencies: []string{"sql"}},
	})
	require.NoError(t, err)
	settle(t, ct)
	assert.Equal(t, container.StateUp, stateOf(api))
	first, err := ct.Service(db)
	require.NoError(t, err)

	// A new value replaces db; api restarts against the new instance.
	diff, err := r.Apply(ctx, []config.ServiceConfig{
		{Name: "db", Mode: "ACTIVE", Aliases: []string{"sql"}, Value: "v2"},
		{Name: "api", Mode: "ACTIVE", Dependencies: []string{"sql"}},
		{Name: "cache", Mode: "ACTIVE"},
	})
	require.NoError(t, err)
	assert.Len(t, diff.Replaced, 1)
	assert.Len(t, diff.Added, 1)
	settle(t, ct)

	second, err := ct.Service(db)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	v, err := second.Value()
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, container.StateUp, stateOf(api))
	assert.Equal(t, container.StateUp, stateOf(cache))
	assert.Equal(t, 2, rec.Count(api, container.EventServiceStarted))

	_, err = r.Apply(ctx, []config.ServiceConfig{
		{Name: "db", Mode: "ACTIVE", Aliases: []string{"sql"}, Value: "v2"},
		{Name: "api", Mode: "NEVER", Dependencies: []string{"sql"}},
	})
	require.NoError(t, err)
	settle(t, ct)
	assert.Equal(t, container.StateDown, stateOf(api))
	_, err = ct.Service(cache)
	assert.True(t, container.IsNotFound(err))

	// A cycle is rejected before anything changes.
	_, err = r.Apply(ctx, []config.ServiceConfig{
		{Name: "db", Mode: "ACTIVE", Aliases: []string{"sql"}, Dependencies: []string{"api"}},
		{Name: "api", Mode: "ACTIVE", Dependencies: []string{"sql"}},
	})
	var cycle *dependency.CycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	settle(t, ct)
	assert.Equal(t, container.StateDown, stateOf(api))
	assert.Equal(t, container.StateUp, stateOf(db))
}

func TestRetrierStoppedIsSilent(t *testing.T) {
	logging.Init(logging.LevelDebug, logging.FormatText, io.Discard)
	var mu sync.Mutex
	var giveUps []string
	remove := logging.AddHook(func(e logging.LogEntry) {
		if e.Level == logging.LevelWarn && strings.HasPrefix(e.Message, "Giving up on") {
			mu.Lock()
			giveUps = append(giveUps, e.Message)
			mu.Unlock()
		}
	})
	defer remove()

	ct := newContainer(t)
	stopped := NewRetrier(time.Millisecond, 3)
	stopped.Stop()
	exhausted := NewRetrier(time.Millisecond, 0)

	scripted, err := Install(ct, []config.ServiceConfig{
		{Name: "after.stop", Mode: "ACTIVE", FailStarts: 5},
	}, stopped)
	require.NoError(t, err)
	_, err = Install(ct, []config.ServiceConfig{
		{Name: "no.budget", Mode: "ACTIVE", FailStarts: 5},
	}, exhausted)
	require.NoError(t, err)
	settle(t, ct)

	assert.Zero(t, stopped.Pending())
	starts, _ := scripted[service.MustName("after.stop")].Attempts()
	assert.Equal(t, 1, starts)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, giveUps, 1)
	assert.Contains(t, giveUps[0], "no.budget")
}
