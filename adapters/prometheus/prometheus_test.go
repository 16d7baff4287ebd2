package prometheus

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
)

type ping struct{}

type pinged struct{}

func TestNewBusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)
	b := bus.New(bus.Options{Metrics: m})

	bus.MustAccept(b, "ping", slog.LevelDebug, func(ctx context.Context, _ ping) error {
		b.Publish(ctx, pinged{})
		return nil
	})
	bus.Subscribe(b, "ok", "", slog.LevelDebug, func(context.Context, pinged) error { return nil })
	bus.Subscribe(b, "bad", "", slog.LevelDebug, func(context.Context, pinged) error { return errors.New("nope") })

	require.NoError(t, b.Execute(t.Context(), ping{}))
	require.Error(t, b.Execute(t.Context(), struct{}{}))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["rig_bus_command_duration_seconds"])
	assert.True(t, names["rig_bus_commands_total"])
	assert.True(t, names["rig_bus_events_published_total"])
	assert.True(t, names["rig_bus_subscriber_faults_total"])

	bm := m.(*busMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.subscriberFaults))
	assert.Equal(t, 2.0, testutil.ToFloat64(bm.eventSubscribers))
	assert.Equal(t, 2, testutil.CollectAndCount(bm.commandsTotal))
}

func TestNewSetMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSetMetrics(reg)

	s := set.New(set.Options[string, string]{
		Name:    "names",
		KeyOf:   func(s string) string { return s },
		Metrics: m,
	})
	_, err := s.Add(t.Context(), "a")
	require.NoError(t, err)
	_, err = s.Add(t.Context(), "b")
	require.NoError(t, err)
	_, err = s.Add(t.Context(), "a")
	require.ErrorIs(t, err, set.ErrAlreadyExists)

	sm := m.(*setMetrics)
	assert.Equal(t, 2.0, testutil.ToFloat64(sm.entries.WithLabelValues("names")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.loadsTotal.WithLabelValues("names", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sm.mutationsTotal.WithLabelValues("names", "added", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.mutationsTotal.WithLabelValues("names", "added", "false")))
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg)

	require.NotNil(t, m.Bus)
	require.NotNil(t, m.Set)

	m.Bus.CommandExecuted("test", true)
	m.Set.Size("test", 3)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
