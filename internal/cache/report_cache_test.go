package cache

import (
	"strings"
	"testing"
	"time"
)

func TestReportKey(t *testing.T) {
	got := reportKey("user-1", "mood:week:2026-09-15")
	if got != "serenia:report:user-1:mood:week:2026-09-15" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestUserPatternEscapesGlob(t *testing.T) {
	got := userPattern("a*b?[c]")
	if got != `serenia:report:a\*b\?\[c\]:*` {
		t.Fatalf("unexpected pattern: %s", got)
	}
}

func TestNewReportCacheDefaultTTL(t *testing.T) {
	if c := NewReportCache(nil, 0); c.ttl != defaultTTL {
		t.Fatalf("expected default ttl, got %v", c.ttl)
	}
	if c := NewReportCache(nil, time.Minute); c.ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", c.ttl)
	}
}

func TestGenerationKeyOutsideReportPattern(t *testing.T) {
	got := generationKey("user-1")
	if got != "serenia:generation:user-1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if strings.HasPrefix(got, keyPrefix) {
		t.Fatalf("generation key must survive InvalidateUser's scan, got %s", got)
	}
}
