package reconcile

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// DefaultThreshold is the minimum similarity for a fuzzy name match.
const DefaultThreshold = 0.85

// Method records which rule resolved a reference.
type Method int

const (
	// MethodUnresolved means no rule matched.
	MethodUnresolved Method = iota
	// MethodURL means the reference carried its own player ID.
	MethodURL
	// MethodExact means the normalized name matched exactly one player.
	MethodExact
	// MethodInitial means an abbreviated name matched one player by initial and surname.
	MethodInitial
	// MethodFuzzy means one player's name was the single best match above the threshold.
	MethodFuzzy
)

func (m Method) String() string {
	switch m {
	case MethodURL:
		return "url"
	case MethodExact:
		return "exact"
	case MethodInitial:
		return "initial"
	case MethodFuzzy:
		return "fuzzy"
	default:
		return "unresolved"
	}
}

// Ref is a player reference as it appears in a source row.
type Ref struct {
	PlayerID string
	Name     string
}

// Resolution is the outcome of resolving one Ref.
type Resolution struct {
	PlayerID string
	Method   Method
	Score    float64
}

// Resolved reports whether the reference was linked to a real player.
func (r Resolution) Resolved() bool {
	return r.Method != MethodUnresolved
}

// Options tunes name matching.
type Options struct {
	Threshold float64
}

type initialEntry struct {
	playerID string
	initial  rune
}

// NameIndex maps normalized names to the player IDs known to carry them. It
// is only changed through Learn; Resolve reads it.
type NameIndex struct {
	byName    map[string]map[string]bool
	bySurname map[string][]initialEntry
	names     []string
}

// NewNameIndex returns an empty index.
func NewNameIndex() *NameIndex {
	return &NameIndex{
		byName:    map[string]map[string]bool{},
		bySurname: map[string][]initialEntry{},
	}
}

// Len returns the number of distinct normalized names.
func (ix *NameIndex) Len() int {
	return len(ix.names)
}

// Learn records that playerID is known by name. Provisional IDs and empty
// names are ignored.
func (ix *NameIndex) Learn(playerID, name string) {
	normalized := Normalize(name)
	if playerID == "" || normalized == "" || IsProvisional(playerID) {
		return
	}

	ids, ok := ix.byName[normalized]
	if !ok {
		ids = map[string]bool{}
		ix.byName[normalized] = ids
		i := sort.SearchStrings(ix.names, normalized)
		ix.names = append(ix.names, "")
		copy(ix.names[i+1:], ix.names[i:])
		ix.names[i] = normalized
	}
	if ids[playerID] {
		return
	}
	ids[playerID] = true

	// Index every surname suffix so "J. del Potro" and "J. Potro" both
	// find "juan martin del potro".
	words := strings.Fields(normalized)
	if len(words) < 2 {
		return
	}
	initial := []rune(words[0])[0]
	for i := 1; i < len(words); i++ {
		surname := strings.Join(words[i:], " ")
		ix.bySurname[surname] = append(ix.bySurname[surname], initialEntry{playerID: playerID, initial: initial})
	}
}

// IDs returns the player IDs known by an exact normalized name.
func (ix *NameIndex) IDs(name string) []string {
	ids := ix.byName[Normalize(name)]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve links ref to a player ID. Rules apply in order: the reference's
// own ID, an exact normalized name, an initial plus surname, then the single
// best fuzzy match at or above opts.Threshold. Ambiguous matches at any step
// leave the reference unresolved.
func Resolve(ix *NameIndex, ref Ref, opts Options) Resolution {
	if ref.PlayerID != "" && !IsProvisional(ref.PlayerID) {
		return Resolution{PlayerID: ref.PlayerID, Method: MethodURL, Score: 1}
	}

	normalized := Normalize(ref.Name)
	if normalized == "" {
		return Resolution{}
	}

	if ids := ix.IDs(normalized); len(ids) > 0 {
		if len(ids) == 1 {
			return Resolution{PlayerID: ids[0], Method: MethodExact, Score: 1}
		}
		return Resolution{}
	}

	if initial, surname, ok := initialAndSurname(normalized); ok {
		matches := map[string]bool{}
		for _, e := range ix.bySurname[surname] {
			if e.initial == initial {
				matches[e.playerID] = true
			}
		}
		if id, unique := single(matches); unique {
			return Resolution{PlayerID: id, Method: MethodInitial, Score: 1}
		}
		if len(matches) > 1 {
			return Resolution{}
		}
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var (
		bestScore float64
		bestIDs   = map[string]bool{}
	)
	for _, candidate := range ix.names {
		score := levenshtein.Similarity(normalized, candidate, nil)
		if score < threshold || score < bestScore {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIDs = map[string]bool{}
		}
		for id := range ix.byName[candidate] {
			bestIDs[id] = true
		}
	}
	if id, unique := single(bestIDs); unique {
		return Resolution{PlayerID: id, Method: MethodFuzzy, Score: bestScore}
	}
	return Resolution{}
}

func single(ids map[string]bool) (string, bool) {
	if len(ids) != 1 {
		return "", false
	}
	for id := range ids {
		return id, true
	}
	return "", false
}
