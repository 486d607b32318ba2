package analytics

import "sort"

// counter tallies keys and ranks them by count, breaking ties by the order in
// which keys were first seen.
type counter[K comparable] struct {
	order  []K
	counts map[K]int
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) Inc(key K) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter[K]) Len() int { return len(c.order) }

type counted[K comparable] struct {
	Key   K
	Count int
}

// MostCommon returns up to n entries by descending count; n <= 0 returns all.
func (c *counter[K]) MostCommon(n int) []counted[K] {
	out := make([]counted[K], 0, len(c.order))
	for _, key := range c.order {
		out = append(out, counted[K]{Key: key, Count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
