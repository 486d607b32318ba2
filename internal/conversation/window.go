package conversation

// Window is a fixed-capacity ring buffer that evicts its oldest entry once full.
// It is not safe for concurrent use.
type Window[T any] struct {
	items []T
	head  int // index of the oldest entry
	size  int
}

// NewWindow returns an empty window holding at most capacity entries.
// Capacities below 1 are raised to 1.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when the window is full.
func (w *Window[T]) Push(v T) {
	if w.size < len(w.items) {
		w.items[(w.head+w.size)%len(w.items)] = v
		w.size++
		return
	}
	w.items[w.head] = v
	w.head = (w.head + 1) % len(w.items)
}

// Last returns a copy of the newest n entries, oldest first. n <= 0 returns all.
func (w *Window[T]) Last(n int) []T {
	if n <= 0 || n > w.size {
		n = w.size
	}
	out := make([]T, 0, n)
	for i := w.size - n; i < w.size; i++ {
		out = append(out, w.items[(w.head+i)%len(w.items)])
	}
	return out
}

func (w *Window[T]) Len() int { return w.size }

func (w *Window[T]) Cap() int { return len(w.items) }
