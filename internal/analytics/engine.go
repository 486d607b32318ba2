// Package analytics aggregates persisted message signals into mood and
// anxiety trend reports and templated insights.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/easeaico/serenia/internal/types"
)

// ErrInvalidPeriod is returned for an unknown period name or a non-positive day count.
var ErrInvalidPeriod = errors.New("invalid period")

// MessageSource is the read side of the message store.
type MessageSource interface {
	QueryUserMessages(ctx context.Context, q types.MessageQuery) ([]types.Message, error)
}

// ReportCache stores computed reports per user. A miss is (false, nil).
// Generation changes whenever the user's reports are invalidated; SetReport
// drops the write when generation is no longer current.
type ReportCache interface {
	GetReport(ctx context.Context, userID, name string, dest any) (bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	SetReport(ctx context.Context, userID, name string, generation int64, value any) error
}

// Engine computes reports on demand. It holds no per-user state.
type Engine struct {
	source MessageSource
	cache  ReportCache
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache serves and stores reports through c.
func WithCache(c ReportCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine reading from source.
func NewEngine(source MessageSource, opts ...Option) *Engine {
	e := &Engine{source: source, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// cached returns a cached report under name or computes and stores it.
// Cache failures are logged and treated as misses. The generation is read
// before compute so a report built from pre-invalidation data is never stored.
func cached[T any](ctx context.Context, e *Engine, userID, name string, compute func() (*T, error)) (*T, error) {
	store := e.cache != nil
	var generation int64
	if store {
		var report T
		hit, err := e.cache.GetReport(ctx, userID, name, &report)
		if err != nil {
			slog.Warn("report cache read failed", "user_id", userID, "report", name, "error", err)
		} else if hit {
			return &report, nil
		}
		if generation, err = e.cache.Generation(ctx, userID); err != nil {
			slog.Warn("report cache generation read failed", "user_id", userID, "report", name, "error", err)
			store = false
		}
	}

	report, err := compute()
	if err != nil {
		return nil, err
	}

	if store {
		if err := e.cache.SetReport(ctx, userID, name, generation, report); err != nil {
			slog.Warn("report cache write failed", "user_id", userID, "report", name, "error", err)
		}
	}
	return report, nil
}
