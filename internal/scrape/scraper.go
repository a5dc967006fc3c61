package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/rank-tracker/internal/fetch"
	"github.com/jonathan/rank-tracker/internal/types"
)

// ProfileSelector is the element a rendered player page must contain.
const ProfileSelector = ".pd_content"

// Scraper builds unit URLs against a base URL and parses the responses.
type Scraper struct {
	client     *fetch.Client
	baseURL    string
	useBrowser bool
	verbose    bool
}

// Options configures a Scraper.
type Options struct {
	BaseURL    string
	UseBrowser bool
	Verbose    bool
}

// New creates a scraper that sends every request through client.
func New(client *fetch.Client, opts Options) *Scraper {
	return &Scraper{
		client:     client,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		useBrowser: opts.UseBrowser,
		verbose:    opts.Verbose,
	}
}

// RankingsURL returns the singles rankings page for the week of date.
func (s *Scraper) RankingsURL(date time.Time) string {
	return fmt.Sprintf("%s/en/rankings/singles?rankRange=0-5000&dateWeek=%s", s.baseURL, types.FormatDate(date))
}

// TournamentsURL returns the results archive for one year and type.
func (s *Scraper) TournamentsURL(year int, typ types.TournamentType) string {
	return fmt.Sprintf("%s/en/scores/results-archive?year=%d&tournamentType=%s", s.baseURL, year, typ.Code())
}

// PlayerURL returns the overview page for a player.
func (s *Scraper) PlayerURL(slug, playerID string) string {
	return fmt.Sprintf("%s/en/players/%s/%s/overview", s.baseURL, strings.ReplaceAll(slug, ".", ""), playerID)
}

// Rankings fetches the rankings for one date.
func (s *Scraper) Rankings(ctx context.Context, date time.Time) Result[types.RankingRow] {
	u := s.RankingsURL(date)
	if s.verbose {
		log.Printf("[RANKINGS] Requesting %s", u)
	}

	res, err := s.client.Get(ctx, u)
	if err != nil {
		return fromFetchError[types.RankingRow](u, err)
	}

	rows, err := ParseRankings(res.HTML, date)
	return fromParse(u, rows, err)
}

// Tournaments fetches the finished events of one year and type.
func (s *Scraper) Tournaments(ctx context.Context, year int, typ types.TournamentType) Result[types.TournamentRow] {
	u := s.TournamentsURL(year, typ)
	if s.verbose {
		log.Printf("[TOURNAMENTS] Requesting %s", u)
	}

	res, err := s.client.Get(ctx, u)
	if err != nil {
		return fromFetchError[types.TournamentRow](u, err)
	}

	rows, err := ParseTournaments(res.HTML, year, typ, s.baseURL)
	return fromParse(u, rows, err)
}

// Player fetches one profile page. The result holds at most one row.
func (s *Scraper) Player(ctx context.Context, profileURL string) Result[types.PlayerProfile] {
	if s.verbose {
		log.Printf("[PLAYERS] Requesting %s", profileURL)
	}

	var (
		res *fetch.Result
		err error
	)
	if s.useBrowser {
		res, err = s.client.Render(ctx, profileURL, ProfileSelector, s.verbose)
	} else {
		res, err = s.client.Get(ctx, profileURL)
	}
	if err != nil {
		return fromFetchError[types.PlayerProfile](profileURL, err)
	}

	profile, err := ParsePlayerProfile(res.HTML, profileURL)
	if err != nil {
		return fromParse[types.PlayerProfile](profileURL, nil, err)
	}
	profile.FetchedAt = time.Now().UTC()
	return fromParse(profileURL, []types.PlayerProfile{*profile}, nil)
}

// ParsePlayerURL extracts the slug and player ID from a profile link such as
// "/en/players/jane-roe/p1/overview". Absolute URLs are accepted.
func ParsePlayerURL(href string) (slug, playerID string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part != "players" || i+2 >= len(parts) {
			continue
		}
		slug, playerID = parts[i+1], parts[i+2]
		if slug == "" || playerID == "" {
			return "", "", false
		}
		return slug, playerID, true
	}
	return "", "", false
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return base + "/" + strings.TrimLeft(href, "/")
}
