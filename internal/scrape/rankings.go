package scrape

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/rank-tracker/internal/fetch"
	"github.com/jonathan/rank-tracker/internal/types"
)

// rankingsTableSelectors are tried in order; the first is the current
// desktop layout, the second an older one without the live toggle.
var rankingsTableSelectors = []string{
	"table.mega-table.desktop-table.non-live",
	"table.mega-table",
}

// ParseRankings extracts the rows of a weekly singles rankings page. Rows
// whose rank cell is not a number are dropped. A page without the rankings
// table returns ErrNoContainer.
func ParseRankings(html string, date time.Time) ([]types.RankingRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var table *goquery.Selection
	for _, sel := range rankingsTableSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			table = found
			break
		}
	}
	if table == nil {
		return nil, ErrNoContainer
	}

	pointsCol := headerIndex(table, "points")
	rankingDate := types.FormatDate(date)

	var rows []types.RankingRow
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() < 2 {
			return
		}

		rankText := fetch.CleanText(tds.Eq(0).Text())
		if _, err := types.ParseRank(rankText); err != nil {
			return
		}

		cell := tds.Eq(1)
		name := fetch.CleanText(cell.Find("li.name").First().Text())
		if name == "" {
			name = fetch.CleanText(cell.Find("a").First().Text())
		}
		if name == "" {
			return
		}

		row := types.RankingRow{
			RankingDate: rankingDate,
			Rank:        rankText,
			Name:        name,
			RankChange:  rankChange(cell),
		}

		if pointsCol >= 0 && pointsCol < tds.Length() {
			row.Points = parsePoints(tds.Eq(pointsCol).Text())
		}

		if href, ok := cell.Find("a[href*='/players/']").First().Attr("href"); ok {
			if slug, id, ok := ParsePlayerURL(href); ok {
				row.Slug = slug
				row.PlayerID = id
			}
		}

		rows = append(rows, row)
	})

	if len(rows) == 0 {
		return nil, fmt.Errorf("rankings table has no parseable rows")
	}
	return rows, nil
}

func headerIndex(table *goquery.Selection, label string) int {
	idx := -1
	table.Find("thead th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(th.Text()), label) {
			idx = i
			return false
		}
		return true
	})
	return idx
}

func rankChange(cell *goquery.Selection) *string {
	if up := fetch.CleanText(cell.Find("span.rank-up").First().Text()); up != "" {
		return &up
	}
	if down := fetch.CleanText(cell.Find("span.rank-down").First().Text()); down != "" {
		v := "-" + strings.TrimPrefix(down, "-")
		return &v
	}
	zero := "0"
	return &zero
}

func parsePoints(text string) *int {
	cleaned := strings.NewReplacer(",", "", ".", "", " ", "").Replace(fetch.CleanText(text))
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &n
}
