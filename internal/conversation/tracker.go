package conversation

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for a conversation id with no live context.
var ErrNotFound = errors.New("conversation context not found")

const defaultWindowSize = 5

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindowSize sets the per-context window capacity.
func WithWindowSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.windowSize = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker owns the live contexts, keyed by conversation id.
type Tracker struct {
	mu         sync.RWMutex
	contexts   map[string]*Context
	windowSize int
	now        func() time.Time
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		contexts:   make(map[string]*Context),
		windowSize: defaultWindowSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetOrCreate returns the context for id, creating an empty one on first use.
func (t *Tracker) GetOrCreate(id, userID string) *Context {
	t.mu.RLock()
	c, ok := t.contexts[id]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.contexts[id]; ok {
		return c
	}
	c = newContext(id, userID, t.windowSize, t.now)
	t.contexts[id] = c
	return c
}

func (t *Tracker) Get(id string) (*Context, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.contexts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Delete removes the context for id, waiting for an in-flight turn to finish.
func (t *Tracker) Delete(id string) error {
	c, err := t.Get(id)
	if err != nil {
		return err
	}
	c.turn.Lock()
	defer c.turn.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.contexts[id] != c {
		return ErrNotFound
	}
	delete(t.contexts, id)
	return nil
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.contexts)
}

// Do runs fn with exclusive turn ownership of the context for id. Turns for the
// same conversation run one at a time; different conversations do not block
// each other. A context deleted while Do waited for it is replaced.
func (t *Tracker) Do(id, userID string, fn func(*Context) error) error {
	for {
		c := t.GetOrCreate(id, userID)
		c.turn.Lock()
		if t.registered(id, c) {
			defer c.turn.Unlock()
			return fn(c)
		}
		c.turn.Unlock()
	}
}

func (t *Tracker) registered(id string, c *Context) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contexts[id] == c
}
