package reconcile

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jonathan/rank-tracker/internal/types"
)

// Default search tuning.
const (
	DefaultPrefixRatio = 0.7
	DefaultCacheSize   = 256
)

// Stage names the fallback step that produced a search result.
type Stage int

const (
	// StageNone means nothing matched.
	StageNone Stage = iota
	// StagePrefix matched tokens starting with the query.
	StagePrefix
	// StageWords matched players containing enough distinct query words.
	StageWords
	// StageSubstring matched tokens containing the query.
	StageSubstring
	// StageFuzzyPrefix matched tokens starting with the leading part of the query.
	StageFuzzyPrefix
)

func (s Stage) String() string {
	switch s {
	case StagePrefix:
		return "prefix"
	case StageWords:
		return "words"
	case StageSubstring:
		return "substring"
	case StageFuzzyPrefix:
		return "fuzzy-prefix"
	default:
		return "none"
	}
}

// SearchResult is the set of matching player IDs, sorted, and the stage that
// found them.
type SearchResult struct {
	PlayerIDs []string
	Stage     Stage
}

// SearchOptions tunes an Index.
type SearchOptions struct {
	PrefixRatio float64
	CacheSize   int
}

// postings maps a token to the ordinals of players that carry it, with the
// tokens kept sorted for prefix scans.
type postings struct {
	lists  map[string]*roaring.Bitmap
	sorted []string
}

func newPostings() *postings {
	return &postings{lists: map[string]*roaring.Bitmap{}}
}

func (p *postings) add(token string, ord uint32) {
	bm, ok := p.lists[token]
	if !ok {
		bm = roaring.New()
		p.lists[token] = bm
		i := sort.SearchStrings(p.sorted, token)
		p.sorted = append(p.sorted, "")
		copy(p.sorted[i+1:], p.sorted[i:])
		p.sorted[i] = token
	}
	bm.Add(ord)
}

func (p *postings) remove(token string, ord uint32) {
	if bm, ok := p.lists[token]; ok {
		bm.Remove(ord)
	}
}

func (p *postings) withPrefix(prefix string) *roaring.Bitmap {
	var hits []*roaring.Bitmap
	for i := sort.SearchStrings(p.sorted, prefix); i < len(p.sorted) && strings.HasPrefix(p.sorted[i], prefix); i++ {
		hits = append(hits, p.lists[p.sorted[i]])
	}
	return roaring.FastOr(hits...)
}

func (p *postings) containing(sub string) *roaring.Bitmap {
	var hits []*roaring.Bitmap
	for _, token := range p.sorted {
		if strings.Contains(token, sub) {
			hits = append(hits, p.lists[token])
		}
	}
	return roaring.FastOr(hits...)
}

// Index is a typeahead index over player names. It is built from the player
// table, updated point-wise with Add as compactions reconcile new players,
// and rebuilt when players disappear. Results are cached until the next
// change.
type Index struct {
	mu sync.RWMutex

	ids      []string
	ordinals map[string]uint32
	tokens   *postings
	words    *postings
	tokensOf map[uint32][]string
	wordsOf  map[uint32][]string

	prefixRatio float64
	cache       *lru.Cache[string, SearchResult]
}

// NewIndex returns an empty index.
func NewIndex(opts SearchOptions) *Index {
	if opts.PrefixRatio <= 0 || opts.PrefixRatio > 1 {
		opts.PrefixRatio = DefaultPrefixRatio
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, SearchResult](opts.CacheSize)

	ix := &Index{prefixRatio: opts.PrefixRatio, cache: cache}
	ix.reset()
	return ix
}

func (ix *Index) reset() {
	ix.ids = nil
	ix.ordinals = map[string]uint32{}
	ix.tokens = newPostings()
	ix.words = newPostings()
	ix.tokensOf = map[uint32][]string{}
	ix.wordsOf = map[uint32][]string{}
}

// Rebuild replaces the index contents with players.
func (ix *Index) Rebuild(players []types.Player) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.reset()
	for _, p := range players {
		ix.add(p)
	}
	ix.cache.Purge()
}

// Add inserts or updates one player.
func (ix *Index) Add(p types.Player) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.add(p)
	ix.cache.Purge()
}

// Len returns the number of indexed players.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ordinals)
}

func (ix *Index) add(p types.Player) {
	if p.PlayerID == "" || !p.HasName() {
		return
	}

	ord, ok := ix.ordinals[p.PlayerID]
	if ok {
		for _, t := range ix.tokensOf[ord] {
			ix.tokens.remove(t, ord)
		}
		for _, w := range ix.wordsOf[ord] {
			ix.words.remove(w, ord)
		}
	} else {
		ord = uint32(len(ix.ids))
		ix.ids = append(ix.ids, p.PlayerID)
		ix.ordinals[p.PlayerID] = ord
	}

	tokens := PlayerTokens(p)
	for _, t := range tokens {
		ix.tokens.add(t, ord)
	}
	ix.tokensOf[ord] = tokens

	var words []string
	seen := map[string]bool{}
	for _, t := range tokens {
		for _, w := range strings.Fields(strings.ReplaceAll(t, ",", " ")) {
			if !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
	}
	for _, w := range words {
		ix.words.add(w, ord)
	}
	ix.wordsOf[ord] = words
}

// PlayerTokens returns the normalized name fragments a player is found by:
// full name, last name, surname parts longer than two letters, the
// "first last", "last first" and "last, first" forms, and the country code.
func PlayerTokens(p types.Player) []string {
	first := Normalize(p.FirstName)
	last := Normalize(p.LastName)
	if first == "" && last == "" {
		first, last = types.SplitName(Normalize(p.DisplayName))
	}

	candidates := []string{
		Normalize(p.DisplayName),
		Normalize(p.FullName()),
		last,
	}
	if parts := strings.Fields(last); len(parts) > 1 {
		for _, part := range parts {
			if len([]rune(part)) > 2 {
				candidates = append(candidates, part)
			}
		}
	}
	if first != "" && last != "" {
		candidates = append(candidates,
			first+" "+last,
			last+" "+first,
			last+", "+first,
		)
	}
	candidates = append(candidates, Normalize(p.CountryCode))

	seen := map[string]bool{}
	var tokens []string
	for _, c := range candidates {
		if c != "" && !seen[c] {
			seen[c] = true
			tokens = append(tokens, c)
		}
	}
	return tokens
}

// Search returns the player IDs matching a typed query.
func (ix *Index) Search(query string) []string {
	return ix.Lookup(query).PlayerIDs
}

// Lookup runs the search stages in order and returns the first non-empty
// one: token prefix, multi-word match, substring, then a prefix of the
// leading PrefixRatio of the query.
func (ix *Index) Lookup(query string) SearchResult {
	q := Normalize(query)
	if q == "" {
		return SearchResult{}
	}
	if cached, ok := ix.cache.Get(q); ok {
		return cached
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// Cached under the read lock so a concurrent Add cannot purge first.
	result := ix.lookup(q)
	ix.cache.Add(q, result)
	return result
}

func (ix *Index) lookup(q string) SearchResult {
	if bm := ix.tokens.withPrefix(q); !bm.IsEmpty() {
		return ix.result(bm, StagePrefix)
	}

	if words := uniqueWords(q); len(words) > 1 {
		need := 2
		if len(words) < need {
			need = len(words)
		}
		counts := map[uint32]int{}
		for _, w := range words {
			for _, ord := range ix.words.withPrefix(w).ToArray() {
				counts[ord]++
			}
		}
		bm := roaring.New()
		for ord, n := range counts {
			if n >= need {
				bm.Add(ord)
			}
		}
		if !bm.IsEmpty() {
			return ix.result(bm, StageWords)
		}
	}

	if bm := ix.tokens.containing(q); !bm.IsEmpty() {
		return ix.result(bm, StageSubstring)
	}

	runes := []rune(q)
	n := int(math.Ceil(float64(len(runes)) * ix.prefixRatio))
	if n > 0 && n < len(runes) {
		if bm := ix.tokens.withPrefix(string(runes[:n])); !bm.IsEmpty() {
			return ix.result(bm, StageFuzzyPrefix)
		}
	}

	return SearchResult{}
}

func (ix *Index) result(bm *roaring.Bitmap, stage Stage) SearchResult {
	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, ix.ids[it.Next()])
	}
	sort.Strings(ids)
	return SearchResult{PlayerIDs: ids, Stage: stage}
}

func uniqueWords(q string) []string {
	seen := map[string]bool{}
	var words []string
	for _, w := range strings.Fields(strings.ReplaceAll(q, ",", " ")) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}
