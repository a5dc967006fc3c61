package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// EntityKind names one of the three ingested entity types.
type EntityKind string

const (
	// KindRankings is weekly rank snapshots.
	KindRankings EntityKind = "rankings"
	// KindTournaments is results-archive events.
	KindTournaments EntityKind = "tournaments"
	// KindPlayers is player profiles.
	KindPlayers EntityKind = "players"
)

// RunReport counts what happened to each unit of one ingestion batch.
type RunReport struct {
	RunID       uuid.UUID  `json:"run_id"`
	Kind        EntityKind `json:"kind"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Planned     int        `json:"planned"`
	Fetched     int        `json:"fetched"`
	Cached      int        `json:"cached"`
	NotFound    int        `json:"not_found"`
	TimedOut    int        `json:"timed_out"`
	Failed      int        `json:"failed"`
	ParseErrors int        `json:"parse_errors"`
	Rows        int        `json:"rows"`
	Error       string     `json:"error,omitempty"`
}

// NewRunReport starts a report for kind.
func NewRunReport(kind EntityKind) *RunReport {
	return &RunReport{
		RunID:     uuid.New(),
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
}

// Written reports whether the batch added any raw units.
func (r *RunReport) Written() bool {
	return r.Fetched > 0
}

// Summary renders the operator-facing counts line.
func (r *RunReport) Summary() string {
	return fmt.Sprintf("%s: %d units fetched, %d skipped as cached, %d skipped as not-found, %d timed out, %d failed, %d failed to parse",
		r.Kind, r.Fetched, r.Cached, r.NotFound, r.TimedOut, r.Failed, r.ParseErrors)
}
