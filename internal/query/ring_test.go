package query_test

import (
	"testing"

	"github.com/MrWong99/ostinato/internal/query"
)

func TestRingRotate(t *testing.T) {
	t.Parallel()

	t.Run("cycles through all items and wraps", func(t *testing.T) {
		t.Parallel()
		r := query.NewRing([]string{"a", "b", "c"})
		if got := r.Current(); got != "a" {
			t.Fatalf("Current: expected %q, got %q", "a", got)
		}

		var seen []string
		for range 3 {
			r.Rotate()
			seen = append(seen, r.Current())
		}
		want := []string{"b", "c", "a"}
		for i := range want {
			if seen[i] != want[i] {
				t.Fatalf("Rotate cycle: expected %v, got %v", want, seen)
			}
		}
	})

	t.Run("single item ring stays put", func(t *testing.T) {
		t.Parallel()
		r := query.NewRing([]string{"only"})
		r.Rotate()
		r.Rotate()
		if got := r.Current(); got != "only" {
			t.Fatalf("Current: expected %q, got %q", "only", got)
		}
	})
}

func TestRingRemoveWhere(t *testing.T) {
	t.Parallel()

	t.Run("preserves relative order of survivors", func(t *testing.T) {
		t.Parallel()
		r := query.NewRing([]int{1, 2, 3, 4, 5})
		r.RemoveWhere(func(n int) bool { return n%2 == 0 })
		if r.Len() != 3 {
			t.Fatalf("Len: expected 3, got %d", r.Len())
		}
		var got []int
		for range 3 {
			got = append(got, r.Current())
			r.Rotate()
		}
		want := []int{1, 3, 5}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("RemoveWhere: expected order %v, got %v", want, got)
			}
		}
	})

	t.Run("re-clamps current index after shrinking", func(t *testing.T) {
		t.Parallel()
		r := query.NewRing([]string{"a", "b", "c"})
		r.Rotate()
		r.Rotate() // current = "c", index 2
		r.RemoveWhere(func(s string) bool { return s == "c" })
		if r.Len() != 2 {
			t.Fatalf("Len: expected 2, got %d", r.Len())
		}
		// Index 2 wraps to 0 over the new length.
		if got := r.Current(); got != "a" {
			t.Fatalf("Current after removal: expected %q, got %q", "a", got)
		}
	})

	t.Run("can empty the ring", func(t *testing.T) {
		t.Parallel()
		r := query.NewRing([]int{1, 2})
		r.RemoveWhere(func(int) bool { return true })
		if r.Len() != 0 {
			t.Fatalf("Len: expected 0, got %d", r.Len())
		}
	})

	t.Run("removes consecutive matches", func(t *testing.T) {
		t.Parallel()
		r := query.NewRing([]int{7, 7, 1, 7, 7, 2})
		r.RemoveWhere(func(n int) bool { return n == 7 })
		if r.Len() != 2 {
			t.Fatalf("Len: expected 2, got %d", r.Len())
		}
	})
}

func TestRingSome(t *testing.T) {
	t.Parallel()

	r := query.NewRing([]int{1, 2, 3})
	if !r.Some(func(n int) bool { return n == 2 }) {
		t.Fatal("Some: expected true for contained item")
	}
	if r.Some(func(n int) bool { return n == 9 }) {
		t.Fatal("Some: expected false for absent item")
	}
}
