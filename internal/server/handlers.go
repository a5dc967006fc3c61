package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/rank-tracker/internal/pipeline"
	"github.com/jonathan/rank-tracker/internal/query"
	"github.com/jonathan/rank-tracker/internal/types"
)

var validate = validator.New()

// errLedgerMissing is returned by operator endpoints when no ledger is open.
var errLedgerMissing = errors.New("ingestion ledger is not available")

// RunRequest is the body of POST /run/stream. Every field is optional.
type RunRequest struct {
	From        string   `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To          string   `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	FromYear    int      `json:"from_year,omitempty" validate:"omitempty,gte=1900"`
	ToYear      int      `json:"to_year,omitempty" validate:"omitempty,gte=1900,gtefield=FromYear"`
	Types       []string `json:"types,omitempty" validate:"omitempty,dive,oneof=gs atp ch fu grand-slam tour challenger futures"`
	MaxPlayers  int      `json:"max_players,omitempty" validate:"gte=0"`
	SkipPlayers bool     `json:"skip_players,omitempty"`
	Publish     bool     `json:"publish,omitempty"`
}

// PlayerResponse is one player as served by the API.
type PlayerResponse struct {
	PlayerID    string  `json:"player_id"`
	DisplayName string  `json:"display_name"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	BirthDate   *string `json:"birth_date,omitempty"`
	ProfileURL  string  `json:"profile_url,omitempty"`
	Label       string  `json:"label"`
}

// PlayersResponse is a page of the player table.
type PlayersResponse struct {
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Players []PlayerResponse `json:"players"`
}

// CareerBestResponse is a player's best rank and the first date reached.
type CareerBestResponse struct {
	Rank int16  `json:"rank"`
	Date string `json:"date"`
}

// PlayerDetailResponse is a player with derived career figures.
type PlayerDetailResponse struct {
	PlayerResponse
	CareerBest *CareerBestResponse  `json:"career_best,omitempty"`
	Titles     []TournamentResponse `json:"titles"`
}

// ObservationResponse is one ranking observation. Gap markers carry no rank.
// Age is set when the player's birth date is known.
type ObservationResponse struct {
	Date   string   `json:"date"`
	Rank   *int16   `json:"rank,omitempty"`
	Points *int32   `json:"points,omitempty"`
	Age    *float64 `json:"age,omitempty"`
}

// RankingsResponse is a player's ranking history.
type RankingsResponse struct {
	PlayerID     string                `json:"player_id"`
	Observations []ObservationResponse `json:"observations"`
	At           string                `json:"at,omitempty"`
	Interpolated *float64              `json:"interpolated_rank,omitempty"`
}

// SearchResponse lists typeahead matches and the stage that produced them.
type SearchResponse struct {
	Query   string           `json:"query"`
	Stage   string           `json:"stage"`
	Players []PlayerResponse `json:"players"`
}

// TournamentResponse is one compacted tournament.
type TournamentResponse struct {
	Year               int      `json:"year"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	StartDate          string   `json:"start_date"`
	EndDate            *string  `json:"end_date,omitempty"`
	Venue              string   `json:"venue,omitempty"`
	CountryCode        string   `json:"country_code,omitempty"`
	SinglesWinnerNames []string `json:"singles_winner_names"`
}

func toPlayerResponse(p types.Player) PlayerResponse {
	resp := PlayerResponse{
		PlayerID:    p.PlayerID,
		DisplayName: p.DisplayName,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		CountryCode: p.CountryCode,
		ProfileURL:  p.ProfileURL,
		Label:       p.Label(),
	}
	if p.BirthDate != nil {
		d := types.FormatDate(*p.BirthDate)
		resp.BirthDate = &d
	}
	return resp
}

func toPlayerResponses(players []types.Player) []PlayerResponse {
	out := make([]PlayerResponse, len(players))
	for i, p := range players {
		out[i] = toPlayerResponse(p)
	}
	return out
}

func toTournamentResponse(t types.Tournament) TournamentResponse {
	resp := TournamentResponse{
		Year:               t.Year,
		Name:               t.Name,
		Type:               string(t.Type),
		StartDate:          types.FormatDate(t.StartDate),
		Venue:              t.Venue,
		CountryCode:        t.CountryCode,
		SinglesWinnerNames: t.SinglesWinnerNames,
	}
	if t.EndDate != nil {
		d := types.FormatDate(*t.EndDate)
		resp.EndDate = &d
	}
	return resp
}

func toTournamentResponses(ts []types.Tournament) []TournamentResponse {
	out := make([]TournamentResponse, len(ts))
	for i, t := range ts {
		out[i] = toTournamentResponse(t)
	}
	return out
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ErrValidation{Field: name, Message: "must be a non-negative integer"}
	}
	return n, nil
}

// validationError converts validator errors into an ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{Field: fe.Field(), Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

// handleListPlayers returns a page of the player table
func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 100)
	if err != nil {
		s.handleError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.handleError(w, err)
		return
	}

	players, err := s.facade.Players()
	if err != nil {
		s.handleError(w, err)
		return
	}

	page := []types.Player{}
	if offset < len(players) {
		end := min(offset+limit, len(players))
		page = players[offset:end]
	}
	s.jsonResponse(w, http.StatusOK, PlayersResponse{
		Total:   len(players),
		Offset:  offset,
		Players: toPlayerResponses(page),
	})
}

// handleGetPlayer returns one player with career best and titles
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	player, ok := s.facade.Player(id)
	if !ok {
		s.handleError(w, &ErrPlayerNotFound{PlayerID: id})
		return
	}

	resp := PlayerDetailResponse{PlayerResponse: toPlayerResponse(player), Titles: []TournamentResponse{}}

	obs, err := s.facade.RankingsFor([]string{id})
	if err != nil && !errors.Is(err, query.ErrNotIngested) {
		s.handleError(w, err)
		return
	}
	if rank, date, err := query.CareerBest(obs); err == nil {
		resp.CareerBest = &CareerBestResponse{Rank: rank, Date: types.FormatDate(date)}
	}

	tournaments, err := s.facade.Tournaments()
	if err != nil && !errors.Is(err, query.ErrNotIngested) {
		s.handleError(w, err)
		return
	}
	resp.Titles = append(resp.Titles, toTournamentResponses(query.TitlesFor(tournaments, player))...)

	s.jsonResponse(w, http.StatusOK, resp)
}

// handlePlayerRankings returns the ranking history of a player, and the
// interpolated rank when ?at= is given
func (s *Server) handlePlayerRankings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	player, ok := s.facade.Player(id)
	if !ok {
		s.handleError(w, &ErrPlayerNotFound{PlayerID: id})
		return
	}

	obs, err := s.facade.RankingsFor([]string{id})
	if err != nil {
		s.handleError(w, err)
		return
	}

	resp := RankingsResponse{PlayerID: id, Observations: make([]ObservationResponse, len(obs))}
	for i, o := range obs {
		resp.Observations[i] = ObservationResponse{Date: types.FormatDate(o.Date), Rank: o.Rank, Points: o.Points}
		if player.BirthDate != nil {
			age := query.AgeAt(*player.BirthDate, o.Date)
			resp.Observations[i].Age = &age
		}
	}

	if at := r.URL.Query().Get("at"); at != "" {
		date, err := types.ParseDate(at)
		if err != nil {
			s.handleError(w, &ErrValidation{Field: "at", Message: "must be a YYYY-MM-DD date"})
			return
		}
		resp.At = types.FormatDate(date)
		if v, err := query.InterpolatedRank(obs, date); err == nil {
			resp.Interpolated = &v
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleSearch answers typeahead queries
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.handleError(w, &ErrValidation{Field: "q", Message: "is required"})
		return
	}

	s.jsonResponse(w, http.StatusOK, SearchResponse{
		Query:   q,
		Stage:   s.facade.SearchStage(q).String(),
		Players: toPlayerResponses(s.facade.Search(q)),
	})
}

// handleListTournaments returns tournaments, optionally filtered by year and type
func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year", 0)
	if err != nil {
		s.handleError(w, err)
		return
	}
	var typ types.TournamentType
	if raw := r.URL.Query().Get("type"); raw != "" {
		if typ, err = types.ParseTournamentType(raw); err != nil {
			s.handleError(w, &ErrValidation{Field: "type", Message: err.Error()})
			return
		}
	}

	all, err := s.facade.Tournaments()
	if err != nil {
		s.handleError(w, err)
		return
	}

	out := []TournamentResponse{}
	for _, t := range all {
		if year != 0 && t.Year != year {
			continue
		}
		if typ != "" && t.Type != typ {
			continue
		}
		out = append(out, toTournamentResponse(t))
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleUnresolved lists ranking names that could not be linked to a player
func (s *Server) handleUnresolved(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		s.handleError(w, errLedgerMissing)
		return
	}
	list, err := s.ledger.Unresolved()
	if err != nil {
		s.handleError(w, err)
		return
	}
	if list == nil {
		list = []types.UnresolvedIdentity{}
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleListRuns returns recent ingestion reports, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.handleError(w, errLedgerMissing)
		return
	}
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		s.handleError(w, err)
		return
	}
	runs, err := s.ledger.Runs(limit)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if runs == nil {
		runs = []types.RunReport{}
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

// runOptions resolves a validated request into pipeline options. Omitted
// dates cover the current year up to today.
func (req *RunRequest) runOptions(now time.Time) (pipeline.RunOptions, error) {
	opts := pipeline.RunOptions{
		From:        time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		To:          types.Day(now),
		FromYear:    req.FromYear,
		ToYear:      req.ToYear,
		MaxPlayers:  req.MaxPlayers,
		SkipPlayers: req.SkipPlayers,
		Publish:     req.Publish,
	}
	if req.From != "" {
		opts.From, _ = types.ParseDate(req.From)
	}
	if req.To != "" {
		opts.To, _ = types.ParseDate(req.To)
	}
	if opts.To.Before(opts.From) {
		return opts, &ErrValidation{Field: "to", Message: "is before from"}
	}

	if opts.FromYear == 0 {
		opts.FromYear = now.Year()
	}
	if opts.ToYear == 0 {
		opts.ToYear = max(now.Year(), opts.FromYear)
	}
	if opts.ToYear < opts.FromYear {
		return opts, &ErrValidation{Field: "to_year", Message: "is before from_year"}
	}

	if len(req.Types) == 0 {
		opts.TournamentTypes = types.AllTournamentTypes()
	}
	seen := map[types.TournamentType]bool{}
	for _, raw := range req.Types {
		t, err := types.ParseTournamentType(raw)
		if err != nil {
			return opts, &ErrValidation{Field: "types", Message: err.Error()}
		}
		if !seen[t] {
			seen[t] = true
			opts.TournamentTypes = append(opts.TournamentTypes, t)
		}
	}

	if opts.MaxPlayers == 0 {
		opts.MaxPlayers = 100
	}
	return opts, nil
}

// handleRunStream runs the pipeline and streams progress via SSE
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.handleError(w, errRunsDisabled)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.handleError(w, validationError(err))
		return
	}
	opts, err := req.runOptions(time.Now().UTC())
	if err != nil {
		s.handleError(w, err)
		return
	}

	if !s.runMu.TryLock() {
		s.handleError(w, errRunInProgress)
		return
	}
	defer s.runMu.Unlock()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Starting streaming pipeline run...")

	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			log.Printf("Error writing SSE event: %v", err)
		}
	}

	result, err := s.runner.Run(r.Context(), opts)
	if err != nil {
		log.Printf("Pipeline run failed: %v", err)
		sse.WriteError(err.Error())
		return
	}

	sse.WriteComplete("completed", map[string]any{
		"steps":      result.Steps,
		"reports":    result.Reports,
		"compaction": result.Compaction,
		"published":  result.Published,
	})
	log.Printf("Streaming pipeline run completed")
}
