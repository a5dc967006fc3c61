package scrape

import (
	"regexp"
	"strings"
	"time"
)

var looseDateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

func parseLooseDate(s string) (time.Time, bool) {
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateRange parses an event date range. Supported shapes:
//
//	"31 December, 2023 - 7 January, 2024"
//	"Jul 13, 2024 - Aug 15, 2025"
//	"13 - 19 January, 2025"
//	"1 January, 2024"
//
// A start that omits the month or year borrows it from the end. The end is
// nil for single dates.
func ParseDateRange(s string) (start time.Time, end *time.Time, ok bool) {
	s = strings.TrimSpace(strings.NewReplacer("–", "-", "—", "-").Replace(s))
	if s == "" {
		return time.Time{}, nil, false
	}
	if t, ok := parseLooseDate(s); ok {
		return t, nil, true
	}

	left, right, found := strings.Cut(s, "-")
	if !found {
		t, ok := parseLooseDate(s)
		return t, nil, ok
	}

	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)

	endDate, ok := parseLooseDate(right)
	if !ok {
		return time.Time{}, nil, false
	}

	rightWords := strings.Fields(right)
	leftWords := strings.Fields(left)
	switch len(leftWords) {
	case 1:
		// Day only, take month and year from the end.
		if len(rightWords) < 2 {
			return time.Time{}, nil, false
		}
		left = left + " " + strings.Join(rightWords[len(rightWords)-2:], " ")
	case 2:
		left = left + " " + rightWords[len(rightWords)-1]
	}

	startDate, ok := parseLooseDate(left)
	if !ok {
		return time.Time{}, nil, false
	}

	// "28 December - 3 January, 2025" borrows the wrong year.
	if startDate.After(endDate) && len(leftWords) < 3 {
		startDate = startDate.AddDate(-1, 0, 0)
	}

	return startDate, &endDate, true
}

var birthDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\((\d{4}[/-]\d{1,2}[/-]\d{1,2})\)`),
	regexp.MustCompile(`(\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
	regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})`),
}

// ExtractBirthDate finds a date of birth in loosely formatted text such as
// "37 (1987/05/22)", "1987-05-22" or "22.05.1987".
func ExtractBirthDate(text string) (time.Time, bool) {
	for _, re := range birthDatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := parseNumericDate(m[1]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumericDate(s string) (time.Time, bool) {
	var parts []string
	dayFirst := false
	switch {
	case strings.Contains(s, "."):
		parts = strings.Split(s, ".")
		dayFirst = true
	case strings.Contains(s, "/"):
		parts = strings.Split(s, "/")
	default:
		parts = strings.Split(s, "-")
	}
	if len(parts) != 3 {
		return time.Time{}, false
	}
	if dayFirst {
		parts[0], parts[2] = parts[2], parts[0]
	}
	t, err := time.Parse("2006-1-2", strings.Join(parts, "-"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
