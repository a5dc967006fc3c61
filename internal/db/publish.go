package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/rank-tracker/internal/types"
)

// Snapshot is one consistent set of compacted tables.
type Snapshot struct {
	Players     []types.Player
	Rankings    []types.RankObservation
	Tournaments []types.Tournament
}

// PublishStats counts the rows copied per table.
type PublishStats struct {
	Players     int64
	Rankings    int64
	Tournaments int64
}

// Publish replaces the published tables with snap in one transaction, so
// readers see either the old or the new snapshot.
func (db *DB) Publish(ctx context.Context, snap Snapshot) (*PublishStats, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	keyOf := make(map[string]int32, len(snap.Players))
	for _, p := range snap.Players {
		keyOf[p.PlayerID] = p.PlayerKey
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin publish: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE players, rankings, tournaments`); err != nil {
		return nil, fmt.Errorf("failed to truncate tables: %w", err)
	}

	stats := &PublishStats{}

	stats.Players, err = tx.CopyFrom(ctx, pgx.Identifier{"players"},
		[]string{"player_key", "player_id", "display_name", "first_name", "last_name", "country_code", "birth_date", "profile_url"},
		pgx.CopyFromRows(PlayerRows(snap.Players)))
	if err != nil {
		return nil, fmt.Errorf("failed to copy players: %w", err)
	}

	stats.Rankings, err = tx.CopyFrom(ctx, pgx.Identifier{"rankings"},
		[]string{"player_key", "ranking_date", "rank", "points"},
		pgx.CopyFromRows(RankingRows(snap.Rankings, keyOf)))
	if err != nil {
		return nil, fmt.Errorf("failed to copy rankings: %w", err)
	}

	stats.Tournaments, err = tx.CopyFrom(ctx, pgx.Identifier{"tournaments"},
		[]string{"year", "tournament_name", "tournament_type", "start_date", "end_date", "venue", "country_code", "singles_winner_names", "singles_winner_urls"},
		pgx.CopyFromRows(TournamentRows(snap.Tournaments)))
	if err != nil {
		return nil, fmt.Errorf("failed to copy tournaments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit publish: %w", err)
	}
	return stats, nil
}

// RecordRun stores an ingestion run report.
func (db *DB) RecordRun(ctx context.Context, r *types.RunReport) error {
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (run_id, kind, started_at, finished_at, fetched, cached, not_found, timed_out, failed, parse_errors, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (run_id) DO UPDATE SET finished_at = $4, fetched = $5, cached = $6, not_found = $7,
		     timed_out = $8, failed = $9, parse_errors = $10, error_message = $11`,
		r.RunID, string(r.Kind), r.StartedAt, r.FinishedAt, r.Fetched, r.Cached, r.NotFound,
		r.TimedOut, r.Failed, r.ParseErrors, nullIfEmpty(r.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.RunID, err)
	}
	return nil
}

// PlayerRows converts players to COPY rows.
func PlayerRows(players []types.Player) [][]any {
	rows := make([][]any, len(players))
	for i, p := range players {
		rows[i] = []any{
			p.PlayerKey, p.PlayerID, p.DisplayName, p.FirstName, p.LastName,
			nullIfEmpty(p.CountryCode), nullableDate(p.BirthDate), nullIfEmpty(p.ProfileURL),
		}
	}
	return rows
}

// RankingRows converts observations to COPY rows. Observations of players
// without a key are left out.
func RankingRows(obs []types.RankObservation, keyOf map[string]int32) [][]any {
	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		key, ok := keyOf[o.PlayerID]
		if !ok {
			continue
		}
		var rank, points any
		if o.Rank != nil {
			rank = *o.Rank
		}
		if o.Points != nil {
			points = *o.Points
		}
		rows = append(rows, []any{key, o.Date, rank, points})
	}
	return rows
}

// TournamentRows converts tournaments to COPY rows.
func TournamentRows(tournaments []types.Tournament) [][]any {
	rows := make([][]any, len(tournaments))
	for i, t := range tournaments {
		urls := t.SinglesWinnerURLs
		if urls == nil {
			urls = []string{}
		}
		rows[i] = []any{
			int32(t.Year), t.Name, string(t.Type), t.StartDate, nullableDate(t.EndDate),
			t.Venue, nullIfEmpty(t.CountryCode), t.SinglesWinnerNames, urls,
		}
	}
	return rows
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
