package conversation

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/severity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func emo(label string) *emotion.Result {
	return &emotion.Result{PrimaryLabel: label, Confidence: 0.8}
}

func anx(level severity.AnxietyLevel) *severity.AnxietySignal {
	return &severity.AnxietySignal{Detected: level > severity.AnxietyNone, Severity: level, Confidence: 0.5}
}

func TestWindowEvictsOldestInOrder(t *testing.T) {
	w := NewWindow[int](5)
	for i := 1; i <= 12; i++ {
		w.Push(i)
		if w.Len() > w.Cap() {
			t.Fatalf("window exceeded capacity: %d", w.Len())
		}
	}
	got := w.Last(0)
	want := []int{8, 9, 10, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if last := w.Last(2); last[0] != 11 || last[1] != 12 {
		t.Fatalf("expected [11 12], got %v", last)
	}
	if all := w.Last(99); len(all) != 5 {
		t.Fatalf("expected whole window for oversized n, got %v", all)
	}
}

func TestRecentTurnsReturnsLastWindow(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))
	c := tracker.GetOrCreate("c1", "u1")

	for i := 0; i < 8; i++ {
		c.AddTurn(RoleUser, strings.Repeat("x", i+1), nil, nil, nil)
	}
	turns := c.RecentTurns(0)
	if len(turns) != defaultWindowSize {
		t.Fatalf("expected %d turns, got %d", defaultWindowSize, len(turns))
	}
	if len(turns[0].Content) != 4 || len(turns[4].Content) != 8 {
		t.Fatalf("unexpected window order: %q ... %q", turns[0].Content, turns[4].Content)
	}
	if c.Stats().MessageCount != 8 {
		t.Fatalf("expected turn count 8, got %d", c.Stats().MessageCount)
	}
}

func TestAddTurnUpdatesOnlyForUser(t *testing.T) {
	c := NewTracker().GetOrCreate("c1", "u1")

	c.AddTurn(RoleAssistant, "hello", emo("joy"), anx(severity.AnxietyMild), nil)
	if _, ok := c.CurrentEmotion(); ok {
		t.Fatalf("assistant turns must not set current emotion")
	}
	if len(c.EmotionTrajectory()) != 0 || len(c.AnxietyTrajectory()) != 0 {
		t.Fatalf("assistant turns must not extend histories")
	}

	c.AddTurn(RoleUser, "hi", emo("sadness"), anx(severity.AnxietyModerate), nil)
	if label, ok := c.CurrentEmotion(); !ok || label != "sadness" {
		t.Fatalf("expected current emotion sadness, got %q", label)
	}
	if level, ok := c.CurrentAnxiety(); !ok || level != severity.AnxietyModerate {
		t.Fatalf("expected moderate anxiety, got %s", level)
	}
}

func TestCrisisDetectedIsMonotonic(t *testing.T) {
	c := NewTracker().GetOrCreate("c1", "u1")

	c.AddTurn(RoleUser, "I want to die", nil, nil, &severity.CrisisSignal{Detected: true, Severity: severity.CrisisHigh})
	for i := 0; i < 10; i++ {
		c.AddTurn(RoleUser, "better now", nil, nil, &severity.CrisisSignal{Severity: severity.CrisisNone})
		c.AddTurn(RoleAssistant, "glad to hear", nil, nil, nil)
	}
	if !c.CrisisDetected() {
		t.Fatalf("expected crisis flag to stay set")
	}
	if len(c.CrisisHistory()) != 1 {
		t.Fatalf("expected one crisis record, got %d", len(c.CrisisHistory()))
	}
}

func TestEmotionImproving(t *testing.T) {
	c := NewTracker().GetOrCreate("c1", "u1")

	c.AddTurn(RoleUser, "a", emo("sadness"), nil, nil)
	if _, ok := c.EmotionImproving(); ok {
		t.Fatalf("expected no verdict with one record")
	}

	c.AddTurn(RoleUser, "b", emo("joy"), nil, nil)
	if _, ok := c.EmotionImproving(); ok {
		t.Fatalf("expected no verdict on a tie")
	}

	c.AddTurn(RoleUser, "c", emo("gratitude"), nil, nil)
	if improving, ok := c.EmotionImproving(); !ok || !improving {
		t.Fatalf("expected improving")
	}

	c.AddTurn(RoleUser, "d", emo("grief"), nil, nil)
	c.AddTurn(RoleUser, "e", emo("anger"), nil, nil)
	if improving, ok := c.EmotionImproving(); !ok || improving {
		t.Fatalf("expected worsening")
	}
}

func TestAnxietyImprovingUsesOrdinal(t *testing.T) {
	c := NewTracker().GetOrCreate("c1", "u1")

	c.AddTurn(RoleUser, "a", nil, anx(severity.AnxietySevere), nil)
	c.AddTurn(RoleUser, "b", nil, anx(severity.AnxietyMild), nil)
	if improving, ok := c.AnxietyImproving(); !ok || !improving {
		t.Fatalf("expected improving from severe to mild")
	}

	c.AddTurn(RoleUser, "c", nil, anx(severity.AnxietyModerate), nil)
	if improving, ok := c.AnxietyImproving(); !ok || improving {
		t.Fatalf("expected worsening from mild to moderate")
	}

	c.AddTurn(RoleUser, "d", nil, anx(severity.AnxietyModerate), nil)
	if _, ok := c.AnxietyImproving(); ok {
		t.Fatalf("expected no verdict for equal severities")
	}
}

func TestReadyForReflection(t *testing.T) {
	clock := newClock()
	c := NewTracker(WithClock(clock.Now)).GetOrCreate("c1", "u1")

	for i := 0; i < 3; i++ {
		c.AddTurn(RoleUser, "msg", emo("joy"), nil, nil)
		c.AddTurn(RoleAssistant, "reply", nil, nil, nil)
	}
	if c.ReadyForReflection() {
		t.Fatalf("expected not ready before five minutes")
	}

	clock.Advance(5 * time.Minute)
	if !c.ReadyForReflection() {
		t.Fatalf("expected ready after five minutes")
	}
	if stats := c.Stats(); stats.DurationMinutes != 5 || !stats.ReadyForReflection {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestReadyForReflectionNeedsEmotions(t *testing.T) {
	clock := newClock()
	c := NewTracker(WithClock(clock.Now)).GetOrCreate("c1", "u1")
	for i := 0; i < 6; i++ {
		c.AddTurn(RoleUser, "msg", nil, nil, nil)
	}
	clock.Advance(time.Hour)
	if c.ReadyForReflection() {
		t.Fatalf("expected not ready without emotion history")
	}
}

func TestSummary(t *testing.T) {
	c := NewTracker().GetOrCreate("c1", "u1")
	if got := c.Summary(); got != "New conversation, no previous context." {
		t.Fatalf("unexpected empty summary: %q", got)
	}

	long := strings.Repeat("a", 60)
	c.AddTurn(RoleUser, long, emo("fear"), anx(severity.AnxietyModerate), &severity.CrisisSignal{Detected: true, Severity: severity.CrisisLow})
	c.AddTurn(RoleAssistant, "I'm here", nil, nil, nil)

	want := strings.Join([]string{
		"Last 2 messages:",
		"  User: " + strings.Repeat("a", 50) + "...",
		"  Assistant: I'm here",
		"",
		"Current emotion: fear",
		"Anxiety level: moderate",
		"CRISIS DETECTED - Handle with care",
	}, "\n")
	if got := c.Summary(); got != want {
		t.Fatalf("expected summary:\n%s\ngot:\n%s", want, got)
	}
}

func TestSummaryOmitsNoneAnxiety(t *testing.T) {
	c := NewTracker().GetOrCreate("c1", "u1")
	c.AddTurn(RoleUser, "fine", nil, anx(severity.AnxietyNone), nil)
	if strings.Contains(c.Summary(), "Anxiety level") {
		t.Fatalf("expected no anxiety line, got %q", c.Summary())
	}
}

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker(WithWindowSize(3))

	a := tracker.GetOrCreate("c1", "u1")
	b := tracker.GetOrCreate("c1", "u1")
	if a != b {
		t.Fatalf("expected GetOrCreate to be idempotent")
	}
	if a.window.Cap() != 3 {
		t.Fatalf("expected window size 3, got %d", a.window.Cap())
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected 1 context, got %d", tracker.Len())
	}
	if err := tracker.Delete("c1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := tracker.Get("c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := tracker.Delete("c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDoSerializesSameConversation(t *testing.T) {
	tracker := NewTracker(WithWindowSize(100))

	var wg sync.WaitGroup
	var mu sync.Mutex
	active, maxActive := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tracker.Do("c1", "u1", func(c *Context) error {
				mu.Lock()
				active++
				maxActive = max(maxActive, active)
				mu.Unlock()

				c.AddTurn(RoleUser, "hi", nil, nil, nil)
				c.AddTurn(RoleAssistant, "hello", nil, nil, nil)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected turns to be serialized, saw %d concurrent", maxActive)
	}
	turns := tracker.GetOrCreate("c1", "u1").RecentTurns(0)
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Role != RoleUser || turns[i+1].Role != RoleAssistant {
			t.Fatalf("turns interleaved at %d", i)
		}
	}
}

func TestDoPropagatesError(t *testing.T) {
	tracker := NewTracker()
	want := errors.New("boom")
	if err := tracker.Do("c1", "u1", func(*Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestDeleteWaitsForInFlightTurn(t *testing.T) {
	tracker := NewTracker()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tracker.Do("c1", "u1", func(c *Context) error {
			close(started)
			<-release
			c.AddTurn(RoleUser, "hi", nil, nil, nil)
			return nil
		})
	}()
	<-started

	deleted := make(chan error, 1)
	go func() { deleted <- tracker.Delete("c1") }()

	select {
	case err := <-deleted:
		t.Fatalf("expected delete to wait for the running turn, got %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("expected no error from turn, got %v", err)
	}
	if err := <-deleted; err != nil {
		t.Fatalf("expected no error from delete, got %v", err)
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected 0 contexts after delete, got %d", tracker.Len())
	}

	_ = tracker.Do("c1", "u1", func(c *Context) error {
		if n := len(c.RecentTurns(0)); n != 0 {
			t.Fatalf("expected fresh context with no turns, got %d", n)
		}
		return nil
	})
}
