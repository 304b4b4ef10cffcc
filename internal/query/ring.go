package query

// Ring is a fixed-size circular collection with a movable "current" pointer.
// Each cache entry owns one Ring; rotating it is how repeat invocations of
// the same command cycle through equally-matched sounds instead of always
// playing the first result.
//
// Ring is not safe for concurrent use — the owning cache entry serialises
// access.
type Ring[E any] struct {
	items []E
	index int
}

// NewRing creates a Ring over items. The caller must not pass an empty
// slice; an empty Ring has no current item and must never be stored.
// The Ring takes ownership of the slice.
func NewRing[E any](items []E) *Ring[E] {
	return &Ring[E]{items: items}
}

// Len returns the number of items currently in the ring.
func (r *Ring[E]) Len() int {
	return len(r.items)
}

// Current returns the item at the current index without advancing.
func (r *Ring[E]) Current() E {
	return r.items[r.index]
}

// Rotate advances the current index by one, wrapping at the end.
func (r *Ring[E]) Rotate() {
	r.index = (r.index + 1) % len(r.items)
}

// RemoveWhere removes every item satisfying predicate, preserving the
// relative order of the remaining items. The current index is re-clamped
// modulo the new length. If the ring ends up empty the owner must discard
// it — an empty ring has no valid current item.
func (r *Ring[E]) RemoveWhere(predicate func(E) bool) {
	i := 0
	for i < len(r.items) {
		if predicate(r.items[i]) {
			r.items = append(r.items[:i], r.items[i+1:]...)
			if len(r.items) == 0 {
				r.index = 0
				return
			}
			r.index = r.index % len(r.items)
		} else {
			i++
		}
	}
}

// Some reports whether any item in the ring satisfies predicate.
func (r *Ring[E]) Some(predicate func(E) bool) bool {
	for _, item := range r.items {
		if predicate(item) {
			return true
		}
	}
	return false
}
