// Package ingest runs ingestion batches: it walks the units of one entity
// type, skips those already cached, fetches the rest one at a time and
// writes each successful unit to the raw cache.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/rank-tracker/internal/ledger"
	"github.com/jonathan/rank-tracker/internal/rawcache"
	"github.com/jonathan/rank-tracker/internal/scrape"
	"github.com/jonathan/rank-tracker/internal/types"
)

// DefaultMaxConsecutiveFailures is how many transport failures in a row end
// a batch.
const DefaultMaxConsecutiveFailures = 5

// ErrSourceUnreachable is returned when too many consecutive units failed at
// the transport level.
var ErrSourceUnreachable = errors.New("source unreachable")

// Options configures a Driver.
type Options struct {
	// Force re-fetches units that are already cached.
	Force                  bool
	MaxConsecutiveFailures int
	Verbose                bool
	// Now returns the current time; it decides which unit is the current
	// period. Defaults to time.Now.
	Now func() time.Time
}

// Driver runs ingestion batches against one scraper and one raw cache.
type Driver struct {
	scraper  *scrape.Scraper
	raw      *rawcache.Store
	profiles *rawcache.ProfileStore
	ledger   *ledger.Ledger
	opts     Options
}

// New creates a Driver. The ledger may be nil.
func New(s *scrape.Scraper, raw *rawcache.Store, profiles *rawcache.ProfileStore, l *ledger.Ledger, opts Options) *Driver {
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{scraper: s, raw: raw, profiles: profiles, ledger: l, opts: opts}
}

// unit is one piece of work in a batch.
type unit[T any] struct {
	name string
	// current marks the still-changing period, which is always re-fetched.
	current bool
	cached  func() (bool, error)
	fetch   func(ctx context.Context) scrape.Result[T]
	store   func(rows []T) error
}

// run processes units in order and fills report. Unit-local failures are
// counted and skipped; cancellation, a failed raw write and an unreachable
// source end the batch.
func run[T any](ctx context.Context, d *Driver, tag string, report *types.RunReport, units []unit[T]) error {
	report.Planned = len(units)
	consecutive := 0

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.opts.Force && !u.current {
			cached, err := u.cached()
			if err != nil {
				return fmt.Errorf("failed to check cache for %s: %w", u.name, err)
			}
			if cached {
				report.Cached++
				continue
			}
		}

		res := u.fetch(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		switch res.Status {
		case scrape.StatusOK:
			consecutive = 0
			if err := u.store(res.Rows); err != nil {
				return fmt.Errorf("failed to write %s: %w", u.name, err)
			}
			report.Fetched++
			report.Rows += len(res.Rows)
			if d.opts.Verbose {
				log.Printf("%s %s: %d rows", tag, u.name, len(res.Rows))
			}
		case scrape.StatusNotFound:
			consecutive = 0
			report.NotFound++
			if d.opts.Verbose {
				log.Printf("%s %s: not found, skipping", tag, u.name)
			}
		case scrape.StatusParseError:
			consecutive = 0
			report.ParseErrors++
			log.Printf("[WARN] %s %s: %v", tag, u.name, res.Err)
		case scrape.StatusTimeout:
			consecutive++
			report.TimedOut++
			log.Printf("%s %s: timed out, will retry next run", tag, u.name)
		default:
			consecutive++
			report.Failed++
			log.Printf("%s %s: %v", tag, u.name, res.Err)
		}

		if consecutive >= d.opts.MaxConsecutiveFailures {
			return fmt.Errorf("%w: %d consecutive failures, last: %v", ErrSourceUnreachable, consecutive, res.Err)
		}
	}
	return nil
}

// finish closes the report and stores it in the ledger.
func (d *Driver) finish(report *types.RunReport, err error) (*types.RunReport, error) {
	report.FinishedAt = time.Now().UTC()
	if err != nil {
		report.Error = err.Error()
	}
	if d.ledger != nil {
		if lerr := d.ledger.RecordRun(report); lerr != nil {
			log.Printf("[WARN] failed to record run %s: %v", report.RunID, lerr)
		}
	}
	return report, err
}

// Rankings ingests the weekly rankings between from and to.
func (d *Driver) Rankings(ctx context.Context, from, to time.Time) (*types.RunReport, error) {
	report := types.NewRunReport(types.KindRankings)
	current := types.WeekStart(d.opts.Now())

	var units []unit[types.RankingRow]
	for _, date := range types.WeeklyDates(from, to) {
		key := rawcache.RankingsKey(date)
		units = append(units, unit[types.RankingRow]{
			name:    key.String(),
			current: date.Equal(current),
			cached:  func() (bool, error) { return d.raw.Has(key), nil },
			fetch: func(ctx context.Context) scrape.Result[types.RankingRow] {
				return d.scraper.Rankings(ctx, date)
			},
			store: func(rows []types.RankingRow) error { return rawcache.Write(d.raw, key, rows) },
		})
	}

	return d.finish(report, run(ctx, d, "[RANKINGS]", report, units))
}

// Tournaments ingests the results archive for every year in the range and
// every type given.
func (d *Driver) Tournaments(ctx context.Context, fromYear, toYear int, typs []types.TournamentType) (*types.RunReport, error) {
	report := types.NewRunReport(types.KindTournaments)
	if len(typs) == 0 {
		typs = types.AllTournamentTypes()
	}
	currentYear := d.opts.Now().Year()

	var units []unit[types.TournamentRow]
	for year := fromYear; year <= toYear; year++ {
		for _, typ := range typs {
			key := rawcache.TournamentsKey(year, typ)
			units = append(units, unit[types.TournamentRow]{
				name:    key.String(),
				current: year == currentYear,
				cached:  func() (bool, error) { return d.raw.Has(key), nil },
				fetch: func(ctx context.Context) scrape.Result[types.TournamentRow] {
					return d.scraper.Tournaments(ctx, year, typ)
				},
				store: func(rows []types.TournamentRow) error { return rawcache.Write(d.raw, key, rows) },
			})
		}
	}

	return d.finish(report, run(ctx, d, "[TOURNAMENTS]", report, units))
}

// Players fetches up to limit profiles of players seen in the cached rankings,
// best ranked first. Players that already have a profile are skipped unless
// Force is set.
func (d *Driver) Players(ctx context.Context, limit int) (*types.RunReport, error) {
	report := types.NewRunReport(types.KindPlayers)

	candidates, err := d.playerCandidates(ctx, limit)
	if err != nil {
		return d.finish(report, err)
	}

	units := make([]unit[types.PlayerProfile], 0, len(candidates))
	for _, c := range candidates {
		profileURL := d.scraper.PlayerURL(c.Slug, c.PlayerID)
		units = append(units, unit[types.PlayerProfile]{
			name:   profileURL,
			cached: func() (bool, error) { return d.profiles.Has(profileURL) },
			fetch: func(ctx context.Context) scrape.Result[types.PlayerProfile] {
				return d.scraper.Player(ctx, profileURL)
			},
			store: func(rows []types.PlayerProfile) error {
				for i := range rows {
					if err := d.profiles.Write(&rows[i]); err != nil {
						return err
					}
				}
				return nil
			},
		})
	}

	return d.finish(report, run(ctx, d, "[PLAYERS]", report, units))
}
