package query_test

import (
	"math/rand/v2"
	"testing"

	"github.com/MrWong99/ostinato/internal/catalog"
	"github.com/MrWong99/ostinato/internal/query"
)

// newTestRanker returns a Ranker with a fixed seed so orderings are
// reproducible within a test.
func newTestRanker(seed uint64) *query.Ranker {
	return query.NewRanker(rand.New(rand.NewPCG(seed, seed)))
}

func clipCandidate(id, name, keywords string) query.Candidate {
	return query.NewCandidate(catalog.Clip{
		ID:       id,
		Name:     name,
		Keywords: keywords,
		Asset:    catalog.AvailableAsset(id + ".ogg"),
	})
}

func TestRank(t *testing.T) {
	t.Parallel()

	t.Run("exact name match scores zero and ranks first", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		results := r.Rank([]query.Candidate{
			clipCandidate("c1", "applause", ""),
			clipCandidate("c2", "airhorn", ""),
		}, "airhorn")
		if len(results) == 0 {
			t.Fatal("Rank: expected results, got none")
		}
		if results[0].Candidate.Source.ID != "c2" {
			t.Fatalf("Rank: expected exact match first, got %q", results[0].Candidate.Source.ID)
		}
		if results[0].Score != 0 {
			t.Fatalf("Rank: expected score 0 for exact match, got %v", results[0].Score)
		}
	})

	t.Run("dissimilar candidates are dropped", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		results := r.Rank([]query.Candidate{
			clipCandidate("c1", "fghj", ""),
		}, "zzz")
		if len(results) != 0 {
			t.Fatalf("Rank: expected no results, got %d", len(results))
		}
	})

	t.Run("loose letter overlap is not a match", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		// "air" shares letters with "fail" and "sad trombone" but is not a
		// real match for either; only the airhorn clip may survive.
		results := r.Rank([]query.Candidate{
			clipCandidate("a", "airhorn", "loud meme"),
			clipCandidate("b", "sad trombone", "fail loss"),
		}, "air")
		if len(results) != 1 {
			t.Fatalf("Rank: expected exactly 1 result, got %d: %+v", len(results), results)
		}
		if results[0].Candidate.Source.ID != "a" {
			t.Fatalf("Rank: expected %q, got %q", "a", results[0].Candidate.Source.ID)
		}
		if results[0].Score >= query.ResultThreshold {
			t.Fatalf("Rank: surviving score %v at or above threshold", results[0].Score)
		}
	})

	t.Run("keyword tokens match independently", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		results := r.Rank([]query.Candidate{
			clipCandidate("c1", "untitled", "siren alarm klaxon"),
		}, "klaxon")
		if len(results) != 1 {
			t.Fatalf("Rank: expected 1 result, got %d", len(results))
		}
		if results[0].Score != 0 {
			t.Fatalf("Rank: expected score 0 for exact keyword, got %v", results[0].Score)
		}
	})

	t.Run("query is trimmed and lowercased", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		results := r.Rank([]query.Candidate{
			clipCandidate("c1", "Airhorn", ""),
		}, "  AIRHORN  ")
		if len(results) != 1 || results[0].Score != 0 {
			t.Fatalf("Rank: expected one perfect match, got %+v", results)
		}
	})

	t.Run("results ordered best score first", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		results := r.Rank([]query.Candidate{
			clipCandidate("far", "airstrike", ""),
			clipCandidate("exact", "airhorn", ""),
		}, "airhorn")
		if len(results) < 2 {
			t.Fatalf("Rank: expected 2 results, got %d", len(results))
		}
		if results[0].Candidate.Source.ID != "exact" {
			t.Fatalf("Rank: expected %q first, got %q", "exact", results[0].Candidate.Source.ID)
		}
		if results[0].Score > results[1].Score {
			t.Fatalf("Rank: scores out of order: %v then %v", results[0].Score, results[1].Score)
		}
	})

	t.Run("empty query returns all candidates with score zero", func(t *testing.T) {
		t.Parallel()
		r := newTestRanker(1)
		candidates := []query.Candidate{
			clipCandidate("c1", "one", ""),
			clipCandidate("c2", "two", ""),
			clipCandidate("c3", "three", ""),
		}
		results := r.Rank(candidates, "   ")
		if len(results) != len(candidates) {
			t.Fatalf("Rank: expected %d results, got %d", len(candidates), len(results))
		}
		for _, res := range results {
			if res.Score != 0 {
				t.Fatalf("Rank: expected score 0, got %v for %q", res.Score, res.Candidate.Source.ID)
			}
		}
	})
}

// TestRankShuffleFairness drives many ranking passes over an equal-score
// set and asserts every candidate shows up in first position eventually.
// The shuffle is seeded, so the pass counts are stable.
func TestRankShuffleFairness(t *testing.T) {
	t.Parallel()

	r := newTestRanker(42)
	candidates := []query.Candidate{
		clipCandidate("c1", "alpha", ""),
		clipCandidate("c2", "beta", ""),
		clipCandidate("c3", "gamma", ""),
	}

	firsts := make(map[string]int)
	for range 200 {
		results := r.Rank(candidates, "")
		firsts[results[0].Candidate.Source.ID]++
	}

	for _, c := range candidates {
		if firsts[c.Source.ID] == 0 {
			t.Fatalf("shuffle fairness: candidate %q never ranked first in 200 passes: %v",
				c.Source.ID, firsts)
		}
	}
}
