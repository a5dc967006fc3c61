// Package pipeline provides the high-level orchestration of a full run:
// ingestion batches, compaction and the optional Postgres publish.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/rank-tracker/internal/compact"
	"github.com/jonathan/rank-tracker/internal/db"
	"github.com/jonathan/rank-tracker/internal/ingest"
	"github.com/jonathan/rank-tracker/internal/pipeline/steps"
	"github.com/jonathan/rank-tracker/internal/query"
	"github.com/jonathan/rank-tracker/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs. Steps of one wave
// run concurrently, so the callback must be safe for concurrent use.
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	// Rankings weeks
	From time.Time
	To   time.Time

	// Tournament archive
	FromYear        int
	ToYear          int
	TournamentTypes []types.TournamentType

	MaxPlayers  int
	SkipPlayers bool
	Publish     bool
	Verbose     bool
	OnProgress  ProgressCallback
}

// Runner wires the components a full run needs. Facade and DB may be nil;
// without both, publish is skipped.
type Runner struct {
	Driver    *ingest.Driver
	Compactor *compact.Compactor
	Facade    *query.Facade
	DB        *db.DB
}

// Result collects the outputs of every step that ran.
type Result struct {
	Reports    []*types.RunReport
	Compaction []compact.Stats
	Published  *db.PublishStats
	Steps      []string
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, step, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Step:     step,
			Category: steps.StepRegistry[step].Category,
			Message:  message,
			Content:  content,
		})
	}
}

// Run executes the step graph in waves. Every step whose dependencies are
// met runs concurrently with the others of its wave; the first failure
// cancels the wave and ends the run.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	done := map[string]bool{}
	skipped := map[string]bool{}
	if opts.SkipPlayers {
		skipped[steps.ScrapePlayers] = true
	}
	if !opts.Publish || r.DB == nil || r.Facade == nil {
		skipped[steps.Publish] = true
	}

	result := &Result{}
	var mu sync.Mutex // Protects result

	for wave := 1; ; wave++ {
		available := steps.GetAvailableSteps(done, skipped)
		if len(available) == 0 {
			break
		}
		if opts.Verbose {
			log.Printf("[PIPELINE] wave %d: %v", wave, available)
		}

		g, gCtx := errgroup.WithContext(ctx)
		for _, name := range available {
			g.Go(func() error {
				return r.execute(gCtx, name, &opts, result, &mu)
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}

		for _, name := range available {
			done[name] = true
			result.Steps = append(result.Steps, name)
		}
	}

	if blocked := steps.GetBlockedSteps(done, skipped); len(blocked) > 0 {
		return result, fmt.Errorf("run ended with blocked steps: %v", blocked)
	}
	return result, nil
}

func (r *Runner) execute(ctx context.Context, name string, opts *RunOptions, result *Result, mu *sync.Mutex) error {
	emitProgress(opts, name, "started", nil)

	var report *types.RunReport
	var err error

	switch name {
	case steps.ScrapeRankings:
		report, err = r.Driver.Rankings(ctx, opts.From, opts.To)
	case steps.ScrapeTournaments:
		report, err = r.Driver.Tournaments(ctx, opts.FromYear, opts.ToYear, opts.TournamentTypes)
	case steps.ScrapePlayers:
		report, err = r.Driver.Players(ctx, opts.MaxPlayers)
	case steps.Compact:
		return r.compact(ctx, opts, result, mu)
	case steps.Publish:
		return r.publish(ctx, opts, result, mu)
	default:
		return fmt.Errorf("unknown step: %s", name)
	}

	if report != nil {
		mu.Lock()
		result.Reports = append(result.Reports, report)
		mu.Unlock()
		emitProgress(opts, name, report.Summary(), report)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func (r *Runner) compact(ctx context.Context, opts *RunOptions, result *Result, mu *sync.Mutex) error {
	stats, err := r.Compactor.CompactAll(ctx)
	mu.Lock()
	result.Compaction = append(result.Compaction, stats...)
	mu.Unlock()
	if err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}

	if r.Facade != nil {
		if err := r.Facade.Reload(); err != nil {
			return fmt.Errorf("failed to reload query facade: %w", err)
		}
	}
	emitProgress(opts, steps.Compact, fmt.Sprintf("compacted %d tables", len(stats)), stats)
	return nil
}

func (r *Runner) publish(ctx context.Context, opts *RunOptions, result *Result, mu *sync.Mutex) error {
	snap, err := Snapshot(r.Facade)
	if err != nil {
		return err
	}

	stats, err := r.DB.Publish(ctx, snap)
	if err != nil {
		return err
	}

	mu.Lock()
	result.Published = stats
	reports := append([]*types.RunReport(nil), result.Reports...)
	mu.Unlock()

	for _, report := range reports {
		if err := r.DB.RecordRun(ctx, report); err != nil {
			return err
		}
	}

	emitProgress(opts, steps.Publish,
		fmt.Sprintf("published %d players, %d rankings, %d tournaments", stats.Players, stats.Rankings, stats.Tournaments), stats)
	return nil
}

// Snapshot reads every compacted table through the facade.
func Snapshot(f *query.Facade) (db.Snapshot, error) {
	var snap db.Snapshot
	var err error
	if snap.Players, err = f.Players(); err != nil {
		return snap, err
	}
	if snap.Rankings, err = f.Rankings(); err != nil {
		return snap, err
	}
	if snap.Tournaments, err = f.Tournaments(); err != nil {
		return snap, err
	}
	return snap, nil
}
