package series

import (
	"errors"
	"time"

	"github.com/jonathan/rank-tracker/internal/types"
)

// ErrNoObservations is returned when a series has no ranked observation.
var ErrNoObservations = errors.New("no ranked observations")

// InterpolatedRank returns the rank at date from a sorted series: the first
// rank before the series starts, the last rank after it ends, and a linear
// interpolation by elapsed days in between. Gap markers are ignored.
func InterpolatedRank(sorted []types.RankObservation, date time.Time) (float64, error) {
	ranked := ranked(sorted)
	if len(ranked) == 0 {
		return 0, ErrNoObservations
	}

	first, last := ranked[0], ranked[len(ranked)-1]
	if !date.After(first.Date) {
		return float64(*first.Rank), nil
	}
	if !date.Before(last.Date) {
		return float64(*last.Rank), nil
	}

	for i := 1; i < len(ranked); i++ {
		next := ranked[i]
		if next.Date.Before(date) {
			continue
		}
		prev := ranked[i-1]
		span := types.DaysBetween(prev.Date, next.Date)
		if span == 0 {
			return float64(*prev.Rank), nil
		}
		elapsed := types.DaysBetween(prev.Date, date)
		r0, r1 := float64(*prev.Rank), float64(*next.Rank)
		return r0 + (r1-r0)*float64(elapsed)/float64(span), nil
	}
	return float64(*last.Rank), nil
}

// CareerBest returns the best rank in a sorted series and the first date it
// was reached.
func CareerBest(sorted []types.RankObservation) (rank int16, date time.Time, err error) {
	found := false
	for _, o := range sorted {
		if o.Rank == nil {
			continue
		}
		if !found || *o.Rank < rank {
			rank, date, found = *o.Rank, o.Date, true
		}
	}
	if !found {
		return 0, time.Time{}, ErrNoObservations
	}
	return rank, date, nil
}

// AgeAt returns the age in fractional years at date for a birth date, for
// plotting a trajectory against age.
func AgeAt(birth, date time.Time) float64 {
	return float64(types.DaysBetween(birth, date)) / 365.25
}

func ranked(obs []types.RankObservation) []types.RankObservation {
	out := make([]types.RankObservation, 0, len(obs))
	for _, o := range obs {
		if o.Rank != nil {
			out = append(out, o)
		}
	}
	return out
}
