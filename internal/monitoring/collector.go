package monitoring

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/donormap/internal/model"
	"github.com/sells-group/donormap/internal/store"
)

// LedgerSnapshot is a point-in-time view of recent mapping runs.
type LedgerSnapshot struct {
	Total      int     `json:"total"`
	Complete   int     `json:"complete"`
	Failed     int     `json:"failed"`
	Running    int     `json:"running"`
	FailRate   float64 `json:"fail_rate"`
	Records    int     `json:"records"`
	Features   int     `json:"features"`
	Unresolved int     `json:"unresolved"`
	Amount     float64 `json:"amount"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of the ledger the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector summarizes the run ledger.
type Collector struct {
	runs  RunLister
	clock clockwork.Clock
}

// NewCollector creates a collector. A nil clock uses real time.
func NewCollector(runs RunLister, clock clockwork.Clock) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Collector{runs: runs, clock: clock}
}

// Collect summarizes runs started within the lookback window. A
// non-positive lookback covers the whole ledger.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*LedgerSnapshot, error) {
	now := c.clock.Now().UTC()
	snap := &LedgerSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	filter := store.RunFilter{Limit: 10000}
	if lookbackHours > 0 {
		filter.StartedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}
	runs, err := c.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.Total = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusRunning:
			snap.Running++
		}
		if r.Summary != nil {
			snap.Records += r.Summary.Records
			snap.Features += r.Summary.Features
			snap.Unresolved += r.Summary.Unresolved
			snap.Amount += r.Summary.Total
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	return snap, nil
}
