// Package cache keeps computed analytics reports in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var errStaleGeneration = errors.New("report generation is stale")

const (
	keyPrefix        = "serenia:report:"
	generationPrefix = "serenia:generation:"
	defaultTTL       = 5 * time.Minute
	scanCount        = 100
)

// ReportCache stores report JSON under per-user keys with a TTL.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache wraps client. A non-positive ttl selects five minutes.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func reportKey(userID, name string) string {
	return keyPrefix + userID + ":" + name
}

func generationKey(userID string) string {
	return generationPrefix + userID
}

// userPattern matches every report key of userID.
func userPattern(userID string) string {
	return keyPrefix + escapeGlob(userID) + ":*"
}

// GetReport decodes the report stored under name into dest. A missing key is (false, nil).
func (c *ReportCache) GetReport(ctx context.Context, userID, name string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, reportKey(userID, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read report %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode report %s: %w", name, err)
	}
	return true, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, g stringGetter, userID string) (int64, error) {
	gen, err := g.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read report generation: %w", err)
	}
	return gen, nil
}

// Generation returns the user's invalidation counter; zero before the first invalidation.
func (c *ReportCache) Generation(ctx context.Context, userID string) (int64, error) {
	return readGeneration(ctx, c.client, userID)
}

// SetReport stores value as JSON under name, unless the user's reports were
// invalidated after generation was read. A dropped write is not an error.
func (c *ReportCache) SetReport(ctx context.Context, userID, name string, generation int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", name, err)
	}

	key := reportKey(userID, name)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, generationKey(userID))
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		slog.Debug("dropped stale report", "user_id", userID, "report", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write report %s: %w", name, err)
	}
	return nil
}

// InvalidateUser bumps the user's generation, then drops every cached report.
func (c *ReportCache) InvalidateUser(ctx context.Context, userID string) error {
	if err := c.client.Incr(ctx, generationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to bump report generation: %w", err)
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, userPattern(userID), scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan reports: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete reports: %w", err)
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
