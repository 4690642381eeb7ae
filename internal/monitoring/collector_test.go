package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/donormap/internal/model"
	"github.com/sells-group/donormap/internal/store"
)

// mockLister implements RunLister for testing.
type mockLister struct {
	runs    []model.Run
	listErr error
	filter  store.RunFilter
}

func (m *mockLister) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var filtered []model.Run
	for _, r := range m.runs {
		if !filter.StartedAfter.IsZero() && r.StartedAt.Before(filter.StartedAfter) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func TestCollector_Collect(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	lister := &mockLister{runs: []model.Run{
		{Status: model.RunStatusComplete, StartedAt: now.Add(-time.Hour), Summary: &model.RunSummary{Records: 10, Features: 8, Unresolved: 2, Total: 100}},
		{Status: model.RunStatusComplete, StartedAt: now.Add(-2 * time.Hour), Summary: &model.RunSummary{Records: 5, Features: 5, Total: 50.5}},
		{Status: model.RunStatusFailed, StartedAt: now.Add(-3 * time.Hour)},
		{Status: model.RunStatusRunning, StartedAt: now.Add(-10 * time.Minute)},
		{Status: model.RunStatusFailed, StartedAt: now.Add(-48 * time.Hour)},
	}}

	snap, err := NewCollector(lister, clock).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 2, snap.Complete)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 1e-9)
	assert.Equal(t, 15, snap.Records)
	assert.Equal(t, 13, snap.Features)
	assert.Equal(t, 2, snap.Unresolved)
	assert.InDelta(t, 150.5, snap.Amount, 1e-9)
	assert.Equal(t, now, snap.CollectedAt)
	assert.Equal(t, now.Add(-24*time.Hour), lister.filter.StartedAfter)
}

func TestCollector_Collect_WholeLedger(t *testing.T) {
	lister := &mockLister{runs: []model.Run{
		{Status: model.RunStatusFailed, StartedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	snap, err := NewCollector(lister, nil).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, lister.filter.StartedAfter.IsZero())
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1.0, snap.FailRate)
}

func TestCollector_Collect_Empty(t *testing.T) {
	snap, err := NewCollector(&mockLister{}, clockwork.NewFakeClock()).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Total)
	assert.Zero(t, snap.FailRate)
}

func TestCollector_Collect_Error(t *testing.T) {
	_, err := NewCollector(&mockLister{listErr: errors.New("db down")}, nil).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}
