package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRunOrder(t *testing.T) {
	resync := &stubJob{name: "calendar-resync"}
	sweep := &stubJob{name: "draft-sweep"}
	registry, err := NewRegistry(resync, nil, sweep)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Equal(t, []Job{resync, sweep}, jobs)
	require.Equal(t, []string{"calendar-resync", "draft-sweep"}, registry.Names())

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "calendar-resync"}, &stubJob{name: "calendar-resync"})
	require.ErrorContains(t, err, `"calendar-resync" already registered`)

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.ErrorContains(t, registry.Register(&stubJob{name: "  "}), "name required")
	require.Empty(t, registry.Jobs())
}

func TestRegistryLookupByName(t *testing.T) {
	resync := &stubJob{name: "calendar-resync"}
	registry, err := NewRegistry(resync)
	require.NoError(t, err)

	job, ok := registry.Job(" calendar-resync ")
	require.True(t, ok)
	require.Same(t, resync, job)

	_, ok = registry.Job("missing")
	require.False(t, ok)
}
