// Package scrape fetches one unit of work from the source and parses it into
// rows. It never caches and never retries; the batch driver decides what to
// do with each Result.
package scrape

import (
	"errors"
	"fmt"

	"github.com/jonathan/rank-tracker/internal/fetch"
)

// Status classifies the outcome of fetching one unit.
type Status int

const (
	// StatusOK means the unit was fetched and parsed.
	StatusOK Status = iota
	// StatusNotFound means the source has no data for the unit.
	StatusNotFound
	// StatusTransient is a network or HTTP failure worth retrying next run.
	StatusTransient
	// StatusTimeout means the request ran out of time.
	StatusTimeout
	// StatusParseError means a response arrived but its layout was not recognized.
	StatusParseError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not-found"
	case StatusTransient:
		return "transient"
	case StatusTimeout:
		return "timeout"
	case StatusParseError:
		return "parse-error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of fetching one unit.
type Result[T any] struct {
	URL    string
	Status Status
	Rows   []T
	Err    error
}

// OK reports whether the unit was parsed.
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}

// ParseError reports a response whose structure did not match expectations.
type ParseError struct {
	URL     string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %s", e.URL, e.Message)
}

// ErrNoContainer is returned when the page lacks the expected table or list.
var ErrNoContainer = errors.New("expected section not found")

func fromFetchError[T any](url string, err error) Result[T] {
	return Result[T]{URL: url, Status: classify(err), Err: err}
}

func fromParse[T any](url string, rows []T, err error) Result[T] {
	switch {
	case err == nil:
		return Result[T]{URL: url, Status: StatusOK, Rows: rows}
	case errors.Is(err, ErrNoContainer):
		return Result[T]{URL: url, Status: StatusNotFound, Err: err}
	default:
		return Result[T]{URL: url, Status: StatusParseError, Err: &ParseError{URL: url, Message: err.Error()}}
	}
}

func classify(err error) Status {
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		switch {
		case fetchErr.NotFound():
			return StatusNotFound
		case fetchErr.Timeout():
			return StatusTimeout
		}
	}
	return StatusTransient
}
