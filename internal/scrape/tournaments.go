package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/rank-tracker/internal/fetch"
	"github.com/jonathan/rank-tracker/internal/types"
)

// ParseTournaments extracts the finished events of a results-archive page.
// Events without a singles winner are unfinished and left out. A page with
// no event list returns ErrNoContainer.
func ParseTournaments(html string, year int, typ types.TournamentType, baseURL string) ([]types.TournamentRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	events := doc.Find("ul.events")
	if events.Length() == 0 {
		return nil, ErrNoContainer
	}

	var (
		rows       []types.TournamentRow
		recognized int
	)
	events.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		row, ok := parseEvent(li, year, typ, baseURL)
		if row.Name != "" {
			recognized++
		}
		if ok {
			rows = append(rows, row)
		}
	})

	if recognized == 0 {
		return nil, fmt.Errorf("event list has no recognizable events")
	}
	return rows, nil
}

func parseEvent(li *goquery.Selection, year int, typ types.TournamentType, baseURL string) (types.TournamentRow, bool) {
	row := types.TournamentRow{Year: year, Type: typ}

	info := li.Find("div.tournament-info").First()
	if badge := info.Find("img.events_banner").First(); badge.Length() > 0 {
		row.BadgeTitle = optional(badge.AttrOr("title", ""))
	}

	profile := info.Find("a.tournament__profile").First()
	if href, ok := profile.Attr("href"); ok {
		row.URL = optional(absoluteURL(baseURL, href))
	}

	holder := li.Find(".details-holder").First()
	row.Name = fetch.CleanText(holder.Find(".top .name").First().Text())
	if row.Name == "" {
		row.Name = fetch.CleanText(li.Find(".name").First().Text())
	}

	if flag, ok := holder.Find(".top .flag use").First().Attr("href"); ok {
		row.CountryCode = optional(flagCode(flag))
	}

	venue := strings.Trim(fetch.CleanText(holder.Find(".bottom .venue").First().Text()), " |-–")
	row.Venue = optional(venue)

	dateRange := fetch.CleanText(holder.Find(".bottom .Date").First().Text())
	row.DateRange = optional(dateRange)
	if start, end, ok := ParseDateRange(dateRange); ok {
		row.StartDate = optional(types.FormatDate(start))
		if end != nil {
			row.EndDate = optional(types.FormatDate(*end))
		}
	}

	li.Find("div.cta-holder dl.winner").Each(func(_ int, dl *goquery.Selection) {
		label := strings.ToLower(fetch.CleanText(dl.Find("dt").First().Text()))
		var names, urls []string
		dl.Find("dd").Each(func(_ int, dd *goquery.Selection) {
			name, href := winner(dd)
			if name == "" {
				return
			}
			names = append(names, name)
			if href != "" {
				href = absoluteURL(baseURL, href)
			}
			urls = append(urls, href)
		})

		switch {
		case strings.Contains(label, "single"):
			row.SinglesWinnerNames = append(row.SinglesWinnerNames, names...)
			row.SinglesWinnerURLs = append(row.SinglesWinnerURLs, urls...)
		case strings.Contains(label, "double"):
			row.DoublesWinnerNames = append(row.DoublesWinnerNames, names...)
			row.DoublesWinnerURLs = append(row.DoublesWinnerURLs, urls...)
		}
	})

	if href, ok := li.Find(".non-live-cta a.results").First().Attr("href"); ok {
		row.ResultsURL = optional(absoluteURL(baseURL, href))
	}

	if row.Name == "" || len(row.SinglesWinnerNames) == 0 {
		return row, false
	}
	return row, true
}

// winner returns a winner's name and profile href. A winner listed as plain
// text has no href.
func winner(dd *goquery.Selection) (string, string) {
	if a := dd.Find("a").First(); a.Length() > 0 {
		return fetch.CleanText(a.Text()), strings.TrimSpace(a.AttrOr("href", ""))
	}
	return fetch.CleanText(dd.Text()), ""
}

func flagCode(href string) string {
	_, code, found := strings.Cut(href, "#flag-")
	if !found {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
