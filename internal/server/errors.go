package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/rank-tracker/internal/query"
)

// ErrPlayerNotFound indicates no player has the requested ID
type ErrPlayerNotFound struct {
	PlayerID string
}

func (e *ErrPlayerNotFound) Error() string {
	return fmt.Sprintf("player not found: %s", e.PlayerID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// errRunInProgress is returned while another pipeline run holds the lock.
var errRunInProgress = errors.New("a run is already in progress")

// errRunsDisabled is returned when the server has no pipeline runner.
var errRunsDisabled = errors.New("runs are disabled on this server")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var notFound *ErrPlayerNotFound
	var validation *ErrValidation
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, errRunInProgress):
		return http.StatusConflict
	case errors.Is(err, query.ErrNotIngested), errors.Is(err, errRunsDisabled), errors.Is(err, errLedgerMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
