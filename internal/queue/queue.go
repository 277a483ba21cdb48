package queue

// Bounded is an immutable newest-first list capped at a fixed capacity.
// Every operation returns a new value and never writes to a backing array
// that an earlier value can still see, so values may be shared freely
// between goroutines.
type Bounded[T any] struct {
	items []T
	limit int
}

// New creates an empty list holding at most limit items.
// A limit below 1 is treated as 1.
func New[T any](limit int) Bounded[T] {
	if limit < 1 {
		limit = 1
	}
	return Bounded[T]{limit: limit}
}

// FromSlice builds a list from items ordered newest-first, keeping the
// first limit entries.
func FromSlice[T any](items []T, limit int) Bounded[T] {
	b := New[T](limit)
	n := min(len(items), b.limit)
	if n == 0 {
		return b
	}
	b.items = make([]T, n)
	copy(b.items, items[:n])
	return b
}

// Push returns a list with v at the front. When the list is full the
// oldest entry is evicted in the same step.
func (b Bounded[T]) Push(v T) Bounded[T] {
	limit := b.limit
	if limit < 1 {
		limit = 1
	}
	n := min(len(b.items)+1, limit)
	items := make([]T, n)
	items[0] = v
	copy(items[1:], b.items)
	return Bounded[T]{items: items, limit: limit}
}

// Filter returns a list with only the items for which keep returns true.
func (b Bounded[T]) Filter(keep func(T) bool) Bounded[T] {
	out := Bounded[T]{limit: b.limit}
	for _, it := range b.items {
		if keep(it) {
			out.items = append(out.items, it)
		}
	}
	return out
}

// Clear returns an empty list with the same capacity.
func (b Bounded[T]) Clear() Bounded[T] {
	return Bounded[T]{limit: b.limit}
}

// Items returns a copy of the entries, newest first.
func (b Bounded[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// At returns the i-th newest entry.
func (b Bounded[T]) At(i int) T {
	return b.items[i]
}

// Len returns the number of entries.
func (b Bounded[T]) Len() int {
	return len(b.items)
}

// Empty returns true if the list has no entries.
func (b Bounded[T]) Empty() bool {
	return len(b.items) == 0
}

// Limit returns the capacity.
func (b Bounded[T]) Limit() int {
	return b.limit
}
