package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/donormap/internal/config"
	"github.com/sells-group/donormap/internal/feature"
	"github.com/sells-group/donormap/internal/fetcher"
	"github.com/sells-group/donormap/internal/geocode"
	"github.com/sells-group/donormap/internal/monitoring"
	"github.com/sells-group/donormap/internal/store"
)

// BuildEngine loads the reference sources named in cfg and returns an
// Engine over the resulting index.
func BuildEngine(ctx context.Context, ref config.ReferenceConfig, policy *config.Policy) (*Engine, error) {
	idx, err := geocode.BuildIndex(ctx, geocode.Sources{
		ZIPTable:     ref.ZIPTable,
		ZIPSearchDir: ref.ZIPSearchDir,
		Boundaries:   ref.Boundaries,
	}, IndexOptions(policy)...)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build index")
	}
	return NewEngine(idx, policy), nil
}

// FileOutcome reports what happened to one input file.
type FileOutcome struct {
	File        string
	RunID       string
	Result      *Result
	OutputPath  string
	SummaryPath string
	Duration    time.Duration
	Err         error
}

// Runner maps every donation file in a directory.
type Runner struct {
	engine  *Engine
	cfg     *config.Config
	store   store.Store
	metrics *monitoring.Metrics
	clock   clockwork.Clock
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore records each file in the run ledger.
func WithStore(st store.Store) RunnerOption {
	return func(r *Runner) { r.store = st }
}

// WithMetrics reports counts and durations to m.
func WithMetrics(m *monitoring.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithClock replaces the real clock used for run timing.
func WithClock(c clockwork.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// NewRunner creates a Runner.
func NewRunner(engine *Engine, cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine: engine,
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListInputs returns the input files, sorted by name. A file qualifies when
// its name ends with the configured suffix, or with the same stem and an
// .xlsx extension.
func (r *Runner) ListInputs() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.Input.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read input dir %s", r.cfg.Input.Dir)
	}

	suffix := r.cfg.Input.Suffix
	xlsxSuffix := strings.TrimSuffix(suffix, filepath.Ext(suffix)) + ".xlsx"

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, suffix) || strings.HasSuffix(name, xlsxSuffix) {
			files = append(files, filepath.Join(r.cfg.Input.Dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunDir maps every input file. Individual file failures are reported in
// the outcomes and do not stop the other files; the returned error covers
// only listing the directory and cancellation.
func (r *Runner) RunDir(ctx context.Context) ([]FileOutcome, error) {
	log := zap.L().With(zap.String("component", "pipeline.runner"))

	files, err := r.ListInputs()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("no input files found",
			zap.String("dir", r.cfg.Input.Dir),
			zap.String("suffix", r.cfg.Input.Suffix),
		)
		return nil, nil
	}

	st := r.engine.index.Stats()
	r.metrics.ObserveIndex(st.PostalEntries, st.PlaceEntries)

	limit := r.cfg.Pipeline.Concurrency
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]FileOutcome, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range files {
		g.Go(func() error {
			outcomes[i] = r.RunFile(gCtx, path)
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	log.Info("mapping complete",
		zap.Int("files", len(files)),
		zap.Int("succeeded", len(files)-failed),
		zap.Int("failed", failed),
	)

	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		log.Warn("failed to write metrics textfile", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return outcomes, eris.Wrap(err, "pipeline: run cancelled")
	}
	return outcomes, nil
}

// RunFile maps a single input file and writes its feature collections.
func (r *Runner) RunFile(ctx context.Context, path string) FileOutcome {
	name := filepath.Base(path)
	log := zap.L().With(zap.String("component", "pipeline.runner"), zap.String("file", name))
	start := r.clock.Now()
	out := FileOutcome{File: path}

	// Ledger writes must land even when the run itself is cancelled.
	ledgerCtx := context.WithoutCancel(ctx)
	if r.store != nil {
		run, err := r.store.CreateRun(ledgerCtx, name)
		if err != nil {
			log.Warn("failed to record run start", zap.Error(err))
		} else {
			out.RunID = run.ID
		}
	}

	res, err := r.process(ctx, path, &out)
	out.Duration = r.clock.Since(start)
	out.Result = res
	out.Err = err

	if err != nil {
		log.Error("file failed", zap.Error(err))
		r.metrics.ObserveFile("failed", out.Duration)
		if out.RunID != "" {
			if ferr := r.store.FailRun(ledgerCtx, out.RunID, err.Error()); ferr != nil {
				log.Warn("failed to record run failure", zap.Error(ferr))
			}
		}
		return out
	}

	r.observe(res)
	r.metrics.ObserveFile("complete", out.Duration)

	log.Info("file mapped",
		zap.Int("records", res.Records),
		zap.Int("features", len(res.Features)),
		zap.Int("aggregated", res.AggregatedCount()),
		zap.Int("unresolved", res.Unresolved),
		zap.Int("matched_cities", len(res.Matched)),
		zap.Strings("matched", res.Matched),
		zap.Int("city_summaries", len(res.CitySummaries)),
		zap.String("output", out.OutputPath),
		zap.Duration("duration", out.Duration),
	)
	if len(res.Unmatched) > 0 {
		log.Warn("unmatched cities", zap.Int("count", len(res.Unmatched)), zap.Strings("cities", res.Unmatched))
	}

	if out.RunID != "" {
		summary := res.Summary()
		summary.OutputPath = out.OutputPath
		summary.DurationMS = out.Duration.Milliseconds()
		if cerr := r.store.CompleteRun(ledgerCtx, out.RunID, summary); cerr != nil {
			log.Warn("failed to record run completion", zap.Error(cerr))
		}
	}
	return out
}

func (r *Runner) process(ctx context.Context, path string, out *FileOutcome) (*Result, error) {
	recCh, errCh := fetcher.StreamRecords(ctx, path)
	res, procErr := r.engine.Process(ctx, recCh)

	// Drain so the reader goroutine can exit.
	for range recCh {
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: read %s", filepath.Base(path))
		}
	}
	if procErr != nil {
		return nil, procErr
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	out.OutputPath = filepath.Join(r.cfg.Output.Dir, stem+".geojson")
	if err := feature.Write(out.OutputPath, res.Collection()); err != nil {
		return nil, err
	}

	if r.cfg.Output.WriteCitySummary {
		out.SummaryPath = filepath.Join(r.cfg.Output.AggregatedDir, stem+"-aggregated.geojson")
		if err := feature.Write(out.SummaryPath, res.SummaryCollection()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) observe(res *Result) {
	aggregated := res.AggregatedCount()
	individual := len(res.Features) - aggregated
	r.metrics.ObserveRecords(monitoring.OutcomeIndividual, individual)
	r.metrics.ObserveRecords(monitoring.OutcomeUnresolved, res.Unresolved)
	r.metrics.ObserveRecords(monitoring.OutcomeAggregated, res.Records-individual-res.Unresolved)
	r.metrics.ObserveFeatures("individual", individual)
	r.metrics.ObserveFeatures("aggregate", aggregated)
	if r.cfg.Output.WriteCitySummary {
		r.metrics.ObserveFeatures("summary", len(res.CitySummaries))
	}
}
