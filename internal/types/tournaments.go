package types

import (
	"fmt"
	"strings"
	"time"
)

// TournamentType is the archive category of an event.
type TournamentType string

const (
	// GrandSlam covers the four majors.
	GrandSlam TournamentType = "grand-slam"
	// Tour covers ATP 250/500/Masters events and the finals.
	Tour TournamentType = "tour"
	// Challenger is the second tier.
	Challenger TournamentType = "challenger"
	// Futures covers ITF events.
	Futures TournamentType = "futures"
)

var tournamentTypeCodes = map[TournamentType]string{
	GrandSlam:  "gs",
	Tour:       "atp",
	Challenger: "ch",
	Futures:    "fu",
}

// AllTournamentTypes lists every type in archive order.
func AllTournamentTypes() []TournamentType {
	return []TournamentType{GrandSlam, Tour, Challenger, Futures}
}

// Code returns the results-archive query code for the type.
func (t TournamentType) Code() string {
	return tournamentTypeCodes[t]
}

// ParseTournamentType accepts either a type name or its archive code.
func ParseTournamentType(s string) (TournamentType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for t, code := range tournamentTypeCodes {
		if v == string(t) || v == code {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tournament type %q", s)
}

// TournamentRow is one finished event from a results-archive page. Optional
// fields differ between scrape runs and are nil when absent.
type TournamentRow struct {
	Year               int            `json:"year" validate:"required,gte=1900"`
	Type               TournamentType `json:"tournament_type" validate:"required,oneof=grand-slam tour challenger futures"`
	Name               string         `json:"tournament_name" validate:"required"`
	URL                *string        `json:"tournament_url,omitempty"`
	Venue              *string        `json:"venue,omitempty"`
	CountryCode        *string        `json:"country_code,omitempty"`
	DateRange          *string        `json:"date_range,omitempty"`
	StartDate          *string        `json:"start_date,omitempty"`
	EndDate            *string        `json:"end_date,omitempty"`
	BadgeTitle         *string        `json:"badge_title,omitempty"`
	SinglesWinnerNames []string       `json:"singles_winner_names" validate:"min=1,dive,required"`
	SinglesWinnerURLs  []string       `json:"singles_winner_urls"`
	DoublesWinnerNames []string       `json:"doubles_winner_names,omitempty"`
	DoublesWinnerURLs  []string       `json:"doubles_winner_urls,omitempty"`
	ResultsURL         *string        `json:"results_url,omitempty"`
}

// Validate checks required fields and that winner arrays are parallel.
func (r *TournamentRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if len(r.SinglesWinnerNames) != len(r.SinglesWinnerURLs) {
		return fmt.Errorf("singles winner names and urls differ in length: %d != %d",
			len(r.SinglesWinnerNames), len(r.SinglesWinnerURLs))
	}
	return nil
}

// Tournament is a compacted, deduplicated event.
type Tournament struct {
	Year               int
	Name               string
	Type               TournamentType
	StartDate          time.Time
	EndDate            *time.Time
	Venue              string
	CountryCode        string
	SinglesWinnerNames []string
	SinglesWinnerURLs  []string
}
