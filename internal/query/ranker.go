// Package query implements the query resolution core of the soundboard:
// fuzzy ranking of clips against free-text queries, rotating result rings,
// and the per-command result cache with idle eviction and invalidation.
package query

import (
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/ostinato/internal/catalog"
)

// ResultThreshold is the maximum (exclusive) score a candidate may have to
// be considered a match. Scores run from 0 (perfect) to 1 (no similarity).
const ResultThreshold = 0.5

// Candidate is a clip projected for ranking: the display name plus the
// keyword string split into tokens. Derived from [catalog.Clip], never
// persisted.
type Candidate struct {
	Source   catalog.Clip
	Name     string
	Keywords []string
}

// NewCandidate projects clip for ranking.
func NewCandidate(clip catalog.Clip) Candidate {
	return Candidate{
		Source:   clip,
		Name:     clip.Name,
		Keywords: strings.Fields(clip.Keywords),
	}
}

// RankedResult pairs a candidate with its match score. Only results with
// Score < [ResultThreshold] survive ranking.
type RankedResult struct {
	Candidate Candidate
	Score     float64
}

// Ranker scores candidates against free-text queries using Jaro-Winkler
// similarity over the name and keyword fields. Equally-scored candidates
// are shuffled so they rotate fairly across cache rebuilds instead of
// surfacing in catalog order.
//
// The random source is injected so tests can seed it and assert orderings.
// Ranker is safe for concurrent use.
type Ranker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRanker creates a Ranker drawing shuffle randomness from rng.
func NewRanker(rng *rand.Rand) *Ranker {
	return &Ranker{rng: rng}
}

// Rank scores candidates against query and returns the surviving results
// ordered best match first. Candidates scoring at or above
// [ResultThreshold] are dropped. Results are grouped into two-decimal-place
// score buckets; each bucket is shuffled so near-equal matches do not
// always appear in the same order.
//
// An empty (or all-whitespace) query skips scoring: every candidate
// survives with score 0 and the whole set is shuffled once.
func (r *Ranker) Rank(candidates []Candidate, rawQuery string) []RankedResult {
	queryText := strings.ToLower(strings.TrimSpace(rawQuery))

	if queryText == "" {
		results := make([]RankedResult, len(candidates))
		for i, c := range candidates {
			results[i] = RankedResult{Candidate: c}
		}
		r.shuffle(results)
		return results
	}

	var results []RankedResult
	for _, c := range candidates {
		score := scoreCandidate(c, queryText)
		if score >= ResultThreshold {
			continue
		}
		results = append(results, RankedResult{Candidate: c, Score: score})
	}

	// Bucket by rounded two-decimal score so near-equal matches tie-break
	// by shuffle rather than catalog order.
	buckets := make(map[int][]RankedResult, len(results))
	var keys []int
	for _, res := range results {
		key := int(math.Round(res.Score * 100))
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], res)
	}

	// Ascending score order: best matches first.
	slices.Sort(keys)

	ranked := results[:0]
	for _, key := range keys {
		bucket := buckets[key]
		r.shuffle(bucket)
		ranked = append(ranked, bucket...)
	}
	return ranked
}

// shuffle performs a uniform Fisher-Yates shuffle of results in place.
func (r *Ranker) shuffle(results []RankedResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(len(results), func(i, j int) {
		results[i], results[j] = results[j], results[i]
	})
}

// scoreCandidate computes the match score of c against the lowercased
// query. The best similarity across the name field and each keyword token
// wins — taking the per-token maximum keeps long keyword lists from being
// penalised relative to short ones.
//
// The Jaro-Winkler distance is doubled before clamping: raw Jaro-Winkler
// rates short strings sharing a couple of letters as fairly similar
// ("air" vs "fail" is 0.72), so an unshaped 1−similarity score would let
// unrelated fields slip under [ResultThreshold]. Doubling puts the
// effective similarity floor at 0.75, which keeps "air" vs "airhorn"
// while cutting "air" vs "fail" and "air" vs "sad trombone".
func scoreCandidate(c Candidate, queryText string) float64 {
	best := matchr.JaroWinkler(queryText, strings.ToLower(c.Name), false)

	for _, kw := range c.Keywords {
		if s := matchr.JaroWinkler(queryText, strings.ToLower(kw), false); s > best {
			best = s
		}
	}

	return min(1, 2*(1-best))
}
