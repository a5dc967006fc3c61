package types

import (
	"strings"
	"time"
)

// PlayerProfile is the raw record scraped from a player's overview page.
type PlayerProfile struct {
	ProfileURL  string            `json:"profile_url" validate:"required,url"`
	PlayerID    string            `json:"player_id" validate:"required"`
	Slug        string            `json:"slug,omitempty"`
	FullName    string            `json:"full_name,omitempty"`
	CountryCode string            `json:"country_code,omitempty"`
	BirthDate   string            `json:"birth_date,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

// Validate checks the required profile fields.
func (p *PlayerProfile) Validate() error {
	return validate.Struct(p)
}

// Player is the reconciled player entity served by the compacted store.
type Player struct {
	PlayerKey   int32
	PlayerID    string
	DisplayName string
	FirstName   string
	LastName    string
	CountryCode string
	BirthDate   *time.Time
	ProfileURL  string
}

// HasName reports whether the player can be shown in search and charts.
func (p Player) HasName() bool {
	return strings.TrimSpace(p.DisplayName) != "" ||
		strings.TrimSpace(p.FirstName) != "" ||
		strings.TrimSpace(p.LastName) != ""
}

// FullName returns "first last", falling back to the display name.
func (p Player) FullName() string {
	full := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if full == "" {
		return strings.TrimSpace(p.DisplayName)
	}
	return full
}

// Label formats the player as "Last, First (CC) - *YYYY" for pickers.
func (p Player) Label() string {
	var sb strings.Builder
	switch {
	case p.LastName != "" && p.FirstName != "":
		sb.WriteString(p.LastName + ", " + p.FirstName)
	default:
		sb.WriteString(p.FullName())
	}
	if p.CountryCode != "" {
		sb.WriteString(" (" + p.CountryCode + ")")
	}
	if p.BirthDate != nil {
		sb.WriteString(" - *" + p.BirthDate.Format("2006"))
	}
	return sb.String()
}

// SplitName splits a full name into first name and the remaining surname.
// Multi-part surnames ("Juan Martin del Potro") keep every word after the
// first.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
