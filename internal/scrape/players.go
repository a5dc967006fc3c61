package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/rank-tracker/internal/fetch"
	"github.com/jonathan/rank-tracker/internal/types"
)

// ParsePlayerProfile extracts a player's personal details panel. Labels are
// lower-cased with spaces replaced by underscores ("Turned pro" becomes
// "turned_pro"). A page without the panel returns ErrNoContainer.
func ParsePlayerProfile(html string, profileURL string) (*types.PlayerProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	slug, playerID, ok := ParsePlayerURL(profileURL)
	if !ok {
		return nil, fmt.Errorf("profile URL has no player id: %s", profileURL)
	}

	panel := doc.Find("div.pd_content").First()
	if panel.Length() == 0 {
		return nil, ErrNoContainer
	}

	profile := &types.PlayerProfile{
		ProfileURL:  profileURL,
		PlayerID:    playerID,
		Slug:        slug,
		Details:     map[string]string{},
		SocialLinks: map[string]string{},
	}

	// Title format is "Player Name | Overview | ATP Tour | Tennis".
	title := doc.Find("title").First().Text()
	if name, _, _ := strings.Cut(title, "|"); strings.TrimSpace(name) != "" {
		profile.FullName = fetch.CleanText(name)
	}

	panel.Find("li").Each(func(_ int, li *goquery.Selection) {
		spans := li.ChildrenFiltered("span")
		switch spans.Length() {
		case 2:
			label := detailLabel(spans.Eq(0).Text())
			value := spans.Eq(1)
			if value.Find("a[href]").Length() > 0 && value.Find("span.hide-text").Length() > 0 {
				collectSocial(value, profile.SocialLinks)
				return
			}
			text := fetch.CleanText(value.Text())
			if value.HasClass("flag") {
				text, _, _ = strings.Cut(text, " ")
				if href, ok := value.Find("use").First().Attr("href"); ok {
					if code := flagCode(href); code != "" {
						profile.CountryCode = code
					}
				}
			}
			if label != "" {
				profile.Details[label] = text
			}
		case 1:
			if label := detailLabel(spans.Eq(0).Text()); label != "" {
				profile.Details[label] = ""
			}
		case 0:
			collectSocial(li, profile.SocialLinks)
		}
	})

	for _, key := range []string{"dob", "birthdate", "date_of_birth", "age"} {
		if v, ok := profile.Details[key]; ok {
			if dob, ok := ExtractBirthDate(v); ok {
				profile.BirthDate = types.FormatDate(dob)
				break
			}
		}
	}

	if profile.FullName == "" && len(profile.Details) == 0 {
		return nil, fmt.Errorf("personal details panel is empty")
	}
	return profile, nil
}

func detailLabel(text string) string {
	return strings.ToLower(strings.ReplaceAll(fetch.CleanText(text), " ", "_"))
}

func collectSocial(sel *goquery.Selection, links map[string]string) {
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		platform := strings.ToLower(fetch.CleanText(a.Find("span.hide-text").First().Text()))
		if platform == "" {
			return
		}
		links[platform] = a.AttrOr("href", "")
	})
}
