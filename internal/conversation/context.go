// Package conversation tracks per-conversation emotional state in memory.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/utils"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	improvingLookback = 3
	summaryTurns      = 3
	previewRunes      = 50

	reflectionMinTurns    = 5
	reflectionMinEmotions = 2
	reflectionMinAge      = 5 * time.Minute
)

var (
	improvingPositive = map[string]bool{
		"joy": true, "gratitude": true, "love": true,
		"amusement": true, "excitement": true, "optimism": true,
	}
	improvingNegative = map[string]bool{
		"sadness": true, "anger": true, "fear": true,
		"grief": true, "disappointment": true,
	}
)

// Turn is one message held in the context window.
type Turn struct {
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	Emotion   *emotion.Result         `json:"emotion,omitempty"`
	Anxiety   *severity.AnxietySignal `json:"anxiety,omitempty"`
	Crisis    *severity.CrisisSignal  `json:"crisis,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// EmotionRecord is the emotion observed on one user turn.
type EmotionRecord struct {
	Label      string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnxietyRecord is the anxiety observed on one user turn.
type AnxietyRecord struct {
	Level      severity.AnxietyLevel `json:"severity"`
	Confidence float64               `json:"confidence"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CrisisRecord is a user turn on which crisis was detected.
type CrisisRecord struct {
	Level     severity.CrisisLevel `json:"severity"`
	Keywords  []string             `json:"keywords"`
	Timestamp time.Time            `json:"timestamp"`
}

// Context is the derived state of one live conversation.
// Its methods are safe for concurrent use.
type Context struct {
	id     string
	userID string
	now    func() time.Time

	// turn serializes whole chat turns; see Tracker.Do.
	turn sync.Mutex

	mu             sync.RWMutex
	window         *Window[Turn]
	emotions       []EmotionRecord
	anxieties      []AnxietyRecord
	crises         []CrisisRecord
	currentEmotion string
	currentAnxiety *severity.AnxietyLevel
	crisisDetected bool
	turnCount      int
	createdAt      time.Time
	updatedAt      time.Time
}

func newContext(id, userID string, windowSize int, now func() time.Time) *Context {
	created := now()
	return &Context{
		id:        id,
		userID:    userID,
		now:       now,
		window:    NewWindow[Turn](windowSize),
		createdAt: created,
		updatedAt: created,
	}
}

func (c *Context) ID() string { return c.id }

func (c *Context) UserID() string { return c.userID }

// AddTurn records a message. Signals are folded into the histories only for
// user turns; crisis detection latches for the life of the context.
func (c *Context) AddTurn(role, content string, emo *emotion.Result, anxiety *severity.AnxietySignal, crisis *severity.CrisisSignal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now()
	c.window.Push(Turn{
		Role:      role,
		Content:   content,
		Emotion:   emo,
		Anxiety:   anxiety,
		Crisis:    crisis,
		Timestamp: ts,
	})
	c.turnCount++
	c.updatedAt = ts

	if role != RoleUser {
		return
	}
	if emo != nil {
		c.currentEmotion = emo.PrimaryLabel
		c.emotions = append(c.emotions, EmotionRecord{Label: emo.PrimaryLabel, Confidence: emo.Confidence, Timestamp: ts})
	}
	if anxiety != nil {
		level := anxiety.Severity
		c.currentAnxiety = &level
		c.anxieties = append(c.anxieties, AnxietyRecord{Level: level, Confidence: anxiety.Confidence, Timestamp: ts})
	}
	if crisis != nil && crisis.Detected {
		c.crisisDetected = true
		c.crises = append(c.crises, CrisisRecord{Level: crisis.Severity, Keywords: crisis.Keywords, Timestamp: ts})
	}
}

// RecentTurns returns the newest n window entries oldest first; n <= 0 returns the whole window.
func (c *Context) RecentTurns(n int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.Last(n)
}

func (c *Context) EmotionTrajectory() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emotionTrajectory()
}

func (c *Context) emotionTrajectory() []string {
	out := make([]string, 0, len(c.emotions))
	for _, r := range c.emotions {
		out = append(out, r.Label)
	}
	return out
}

func (c *Context) AnxietyTrajectory() []severity.AnxietyLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anxietyTrajectory()
}

func (c *Context) anxietyTrajectory() []severity.AnxietyLevel {
	out := make([]severity.AnxietyLevel, 0, len(c.anxieties))
	for _, r := range c.anxieties {
		out = append(out, r.Level)
	}
	return out
}

// CrisisHistory returns the crisis-positive user turns, oldest first.
func (c *Context) CrisisHistory() []CrisisRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]CrisisRecord(nil), c.crises...)
}

func (c *Context) CrisisDetected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.crisisDetected
}

// CurrentEmotion returns the label of the latest classified user turn.
func (c *Context) CurrentEmotion() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentEmotion, c.currentEmotion != ""
}

// CurrentAnxiety returns the severity of the latest scored user turn.
func (c *Context) CurrentAnxiety() (severity.AnxietyLevel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentAnxiety == nil {
		return severity.AnxietyNone, false
	}
	return *c.currentAnxiety, true
}

// EmotionImproving compares positive and negative labels among the last three
// emotions. ok is false when there is no verdict.
func (c *Context) EmotionImproving() (improving, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emotionImproving()
}

func (c *Context) emotionImproving() (bool, bool) {
	if len(c.emotions) < 2 {
		return false, false
	}
	recent := c.emotions[max(0, len(c.emotions)-improvingLookback):]
	positive, negative := 0, 0
	for _, r := range recent {
		switch {
		case improvingPositive[r.Label]:
			positive++
		case improvingNegative[r.Label]:
			negative++
		}
	}
	switch {
	case positive > negative:
		return true, true
	case negative > positive:
		return false, true
	default:
		return false, false
	}
}

// AnxietyImproving compares the ordinal severity of the last two anxiety
// records. ok is false when there is no verdict.
func (c *Context) AnxietyImproving() (improving, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anxietyImproving()
}

func (c *Context) anxietyImproving() (bool, bool) {
	n := len(c.anxieties)
	if n < 2 {
		return false, false
	}
	prev, curr := c.anxieties[n-2].Level, c.anxieties[n-1].Level
	switch {
	case curr < prev:
		return true, true
	case curr > prev:
		return false, true
	default:
		return false, false
	}
}

// ReadyForReflection reports whether the exchange is long enough to reflect on.
func (c *Context) ReadyForReflection() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readyForReflection()
}

func (c *Context) readyForReflection() bool {
	return c.turnCount >= reflectionMinTurns &&
		len(c.emotions) >= reflectionMinEmotions &&
		c.now().Sub(c.createdAt) >= reflectionMinAge
}

// Stats is a point-in-time snapshot of a context.
type Stats struct {
	ConversationID     string                  `json:"conversation_id"`
	UserID             string                  `json:"user_id"`
	MessageCount       int                     `json:"message_count"`
	DurationMinutes    float64                 `json:"duration_minutes"`
	CurrentEmotion     *string                 `json:"current_emotion"`
	CurrentAnxiety     *severity.AnxietyLevel  `json:"current_anxiety"`
	CrisisDetected     bool                    `json:"crisis_detected"`
	EmotionTrajectory  []string                `json:"emotion_trajectory"`
	AnxietyTrajectory  []severity.AnxietyLevel `json:"anxiety_trajectory"`
	EmotionImproving   *bool                   `json:"emotion_improving"`
	AnxietyImproving   *bool                   `json:"anxiety_improving"`
	ReadyForReflection bool                    `json:"ready_for_reflection"`
}

func (c *Context) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		ConversationID:     c.id,
		UserID:             c.userID,
		MessageCount:       c.turnCount,
		DurationMinutes:    c.now().Sub(c.createdAt).Minutes(),
		CrisisDetected:     c.crisisDetected,
		EmotionTrajectory:  c.emotionTrajectory(),
		AnxietyTrajectory:  c.anxietyTrajectory(),
		ReadyForReflection: c.readyForReflection(),
	}
	if c.currentEmotion != "" {
		label := c.currentEmotion
		stats.CurrentEmotion = &label
	}
	if c.currentAnxiety != nil {
		level := *c.currentAnxiety
		stats.CurrentAnxiety = &level
	}
	if improving, ok := c.emotionImproving(); ok {
		stats.EmotionImproving = &improving
	}
	if improving, ok := c.anxietyImproving(); ok {
		stats.AnxietyImproving = &improving
	}
	return stats
}

// Summary renders the context as plain text for prompting.
func (c *Context) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.window.Len() == 0 {
		return "New conversation, no previous context."
	}

	recent := c.window.Last(summaryTurns)
	lines := []string{fmt.Sprintf("Last %d messages:", len(recent))}
	for _, t := range recent {
		lines = append(lines, fmt.Sprintf("  %s: %s", capitalize(t.Role), utils.Preview(t.Content, previewRunes)))
	}
	if c.currentEmotion != "" {
		lines = append(lines, "\nCurrent emotion: "+c.currentEmotion)
	}
	if c.currentAnxiety != nil && *c.currentAnxiety != severity.AnxietyNone {
		lines = append(lines, "Anxiety level: "+c.currentAnxiety.String())
	}
	if c.crisisDetected {
		lines = append(lines, "CRISIS DETECTED - Handle with care")
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
