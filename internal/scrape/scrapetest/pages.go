// Package scrapetest builds source pages and a fake source server for tests.
package scrapetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// RankingEntry is one row of a fake rankings page. An empty ID renders the
// player without a profile link.
type RankingEntry struct {
	Rank   string
	Name   string
	Slug   string
	ID     string
	Points string
}

// RankingsPage renders a desktop rankings table.
func RankingsPage(entries ...RankingEntry) string {
	var sb strings.Builder
	sb.WriteString(`<html><body>
<table class="mega-table desktop-table non-live">
<thead><tr><th>Rank</th><th>Player</th><th>Age</th><th>Points</th></tr></thead>
<tbody>`)
	for _, e := range entries {
		name := fmt.Sprintf(`<li class="name center"><span>%s</span></li>`, e.Name)
		if e.ID != "" {
			name = fmt.Sprintf(`<li class="name center"><a href="/en/players/%s/%s/overview"><span>%s</span></a></li>`, e.Slug, e.ID, e.Name)
		}
		fmt.Fprintf(&sb, `<tr class="lower-row">
<td class="rank bold heavy">%s</td>
<td class="player bold heavy"><ul class="player-stats">%s<li class="rank"><span class="rank-up">2</span></li></ul></td>
<td class="age small-cell">30</td>
<td class="points center bold extrabold">%s</td>
</tr>`, e.Rank, name, e.Points)
	}
	sb.WriteString(`<tr><td colspan="4">Load more</td></tr></tbody></table></body></html>`)
	return sb.String()
}

// Event is one entry of a fake results-archive page.
type Event struct {
	Name        string
	Venue       string
	Dates       string
	Flag        string
	SinglesName string
	SinglesHref string
}

// ArchivePage renders a results-archive event list.
func ArchivePage(events ...Event) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><div class="atp_results-archive"><ul class="events">`)
	for _, e := range events {
		fmt.Fprintf(&sb, `<li>
<div class="tournament-info">
<img class="events_banner" alt="250" title="ATP 250" src="/250.png">
<a class="tournament__profile" href="/en/tournaments/%s/1/overview">
<div class="details-holder">
<div class="top"><span class="name">%s</span><span class="flag"><svg><use href="/flags.svg#flag-%s"></use></svg></span></div>
<div class="bottom"><span class="venue">%s | </span><span class="Date">%s</span></div>
</div></a></div>
<div class="cta-holder">`, strings.ToLower(strings.ReplaceAll(e.Name, " ", "-")), e.Name, e.Flag, e.Venue, e.Dates)
		if e.SinglesName != "" {
			sb.WriteString(`<dl class="winner"><dt>Singles Winner</dt>`)
			if e.SinglesHref != "" {
				fmt.Fprintf(&sb, `<dd><a href="%s">%s</a></dd>`, e.SinglesHref, e.SinglesName)
			} else {
				fmt.Fprintf(&sb, `<dd>%s</dd>`, e.SinglesName)
			}
			sb.WriteString(`</dl>`)
		}
		sb.WriteString(`</div><div class="non-live-cta"><a class="results" href="/en/scores/archive/results">Results</a></div></li>`)
	}
	sb.WriteString(`</ul></div></body></html>`)
	return sb.String()
}

// Profile is a fake player overview page.
type Profile struct {
	Name    string
	Country string
	Age     string
}

// ProfilePage renders a player overview with a personal details panel.
func ProfilePage(p Profile) string {
	return fmt.Sprintf(`<html><head><title>%s | Overview | ATP Tour | Tennis</title></head><body>
<div class="personal_details"><div class="pd_content"><ul class="pd_left">
<li><span>Age</span><span>%s</span></li>
<li><span>Weight</span><span>70kg</span></li>
<li><span>Country</span><span class="flag">%s <svg class="atp-flag"><use href="/flags.svg#flag-%s"></use></svg></span></li>
<li><span>Coach</span></li>
<li><a href="https://instagram.com/x"><span class="hide-text">Instagram</span></a></li>
</ul></div></div></body></html>`, p.Name, p.Age, p.Country, strings.ToLower(p.Country))
}

// Source is a fake source server. Paths not registered answer 404. Every
// request is counted.
type Source struct {
	*httptest.Server

	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
}

// NewSource starts a fake source server.
func NewSource() *Source {
	s := &Source{pages: map[string]string{}, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle registers a page for a path plus raw query, e.g.
// "/en/rankings/singles?rankRange=0-5000&dateWeek=2024-01-01".
func (s *Source) Handle(pathAndQuery, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[pathAndQuery] = html
}

// Hits returns the number of requests served for a path plus raw query.
func (s *Source) Hits(pathAndQuery string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[pathAndQuery]
}

// TotalHits returns the number of requests served.
func (s *Source) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *Source) serve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}

	s.mu.Lock()
	s.hits[key]++
	page, ok := s.pages[key]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(page))
}
