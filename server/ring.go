package geiger

// Ring is a fixed-capacity FIFO sequence.
// When an Append would exceed MaxSize the oldest entry is evicted,
// so the Ring always holds the most recent MaxSize values in order.
// Mutation is O(1); it never reallocates after the first lap.
type Ring[T any] struct {
	Buf     []T
	MaxSize int
	head    int // index of the oldest entry
	size    int
}

func NewRing[T any](maxSize int) *Ring[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Ring[T]{
		Buf:     make([]T, maxSize),
		MaxSize: maxSize,
	}
}

func (r *Ring[T]) Len() int { return r.size }

// Append adds a value to the end of the sequence.
// It returns the evicted value and true when the Ring was full.
func (r *Ring[T]) Append(v T) (T, bool) {
	var evicted T
	if r.size == r.MaxSize {
		evicted = r.Buf[r.head]
		r.Buf[r.head] = v
		r.head = (r.head + 1) % r.MaxSize
		return evicted, true
	}
	r.Buf[(r.head+r.size)%r.MaxSize] = v
	r.size++
	return evicted, false
}

// At returns the i-th oldest entry. The caller keeps i in range.
func (r *Ring[T]) At(i int) T {
	return r.Buf[(r.head+i)%r.MaxSize]
}

// SetAt overwrites the i-th oldest entry in place.
func (r *Ring[T]) SetAt(i int, v T) {
	r.Buf[(r.head+i)%r.MaxSize] = v
}

// Snapshot copies the sequence oldest-to-newest.
// The result is never nil so an empty Ring serializes as [].
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.At(i))
	}
	return out
}

// Clear empties the Ring, keeping its allocation.
func (r *Ring[T]) Clear() {
	r.head = 0
	r.size = 0
}
