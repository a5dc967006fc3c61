package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RankingRow is one row of a weekly singles rankings page, kept close to the
// source text. Rank holds the raw cell ("12T" for a tie).
type RankingRow struct {
	RankingDate string  `json:"ranking_date" validate:"required,datetime=2006-01-02"`
	Rank        string  `json:"rank" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	RankChange  *string `json:"rank_change,omitempty"`
	Points      *int    `json:"points,omitempty"`
	PlayerID    string  `json:"player_id,omitempty"`
	Slug        string  `json:"slug,omitempty"`
}

// Validate checks the required row fields.
func (r *RankingRow) Validate() error {
	return validate.Struct(r)
}

// ParseRank converts a rank cell to an integer, stripping tie markers such as
// a trailing "T".
func ParseRank(s string) (int16, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "T"), "T")
	cleaned = strings.TrimSpace(cleaned)
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid rank %q: %w", s, err)
	}
	if n < 1 || n > math.MaxInt16 {
		return 0, fmt.Errorf("rank %d out of range", n)
	}
	return int16(n), nil
}

// RankObservation is a player's rank on one ranking date. A nil Rank marks a
// synthetic gap observation.
type RankObservation struct {
	PlayerID string
	Date     time.Time
	Rank     *int16
	Points   *int32
}

// IsGap reports whether the observation is a gap marker.
func (o RankObservation) IsGap() bool {
	return o.Rank == nil
}

// UnresolvedIdentity is a display name from the rankings that could not be
// linked to a known player.
type UnresolvedIdentity struct {
	Name        string    `json:"name"`
	Normalized  string    `json:"normalized"`
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}
