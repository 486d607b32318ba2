package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/types"
)

const (
	defaultAnxietyDays = 30
	maxTriggers        = 3
	maxRecentScores    = 10
	timeLayout         = "15:04:05"
)

var anxietyTriggers = []struct {
	name     string
	keywords []string
}{
	{"work", []string{"work", "job", "boss", "deadline", "project"}},
	{"relationships", []string{"relationship", "partner", "friend", "family"}},
	{"health", []string{"health", "sick", "pain", "doctor"}},
	{"finances", []string{"money", "debt", "bills", "financial"}},
	{"future", []string{"future", "worry", "uncertain", "afraid"}},
}

// AnxietyScore is one anxiety-flagged message on the 0-3 ordinal scale.
type AnxietyScore struct {
	Date     string                `json:"date"`
	Time     string                `json:"time"`
	Severity severity.AnxietyLevel `json:"severity"`
	Score    int                   `json:"score"`
}

// AnxietyReport summarises anxiety-flagged messages over a trailing window.
type AnxietyReport struct {
	PeriodDays           int                     `json:"period_days"`
	AnxietyDetected      bool                    `json:"anxiety_detected"`
	Episodes             int                     `json:"anxiety_episodes"`
	SeverityDistribution map[string]int          `json:"severity_distribution"`
	Triggers             []severity.TriggerCount `json:"triggers"`
	Patterns             []string                `json:"patterns"`
	Scores               []AnxietyScore          `json:"anxiety_scores"`
}

// AnxietyPatterns reports anxiety over the trailing days; zero selects 30.
func (e *Engine) AnxietyPatterns(ctx context.Context, userID string, days int) (*AnxietyReport, error) {
	if days == 0 {
		days = defaultAnxietyDays
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: %d days", ErrInvalidPeriod, days)
	}

	now := e.clock()
	name := fmt.Sprintf("anxiety:%d:%s", days, now.Format(dateLayout))
	return cached(ctx, e, userID, name, func() (*AnxietyReport, error) {
		messages, err := e.source.QueryUserMessages(ctx, types.MessageQuery{
			UserID:      userID,
			Start:       now.AddDate(0, 0, -days),
			End:         now,
			AnxietyOnly: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load messages for anxiety patterns: %w", err)
		}
		return buildAnxietyReport(days, messages), nil
	})
}

func buildAnxietyReport(days int, messages []types.Message) *AnxietyReport {
	report := &AnxietyReport{
		PeriodDays:           days,
		SeverityDistribution: map[string]int{},
		Triggers:             []severity.TriggerCount{},
		Patterns:             []string{},
		Scores:               []AnxietyScore{},
	}
	if len(messages) == 0 {
		return report
	}

	report.AnxietyDetected = true
	report.Episodes = len(messages)
	for _, msg := range messages {
		report.SeverityDistribution[msg.AnxietySeverity.String()]++
	}
	report.Triggers = anxietyTriggerCounts(messages)
	report.Patterns = anxietyTimePatterns(messages)

	recent := messages
	if len(recent) > maxRecentScores {
		recent = recent[len(recent)-maxRecentScores:]
	}
	for _, msg := range recent {
		ts := msg.Timestamp.UTC()
		report.Scores = append(report.Scores, AnxietyScore{
			Date:     ts.Format(dateLayout),
			Time:     ts.Format(timeLayout),
			Severity: msg.AnxietySeverity,
			Score:    msg.AnxietySeverity.Score(),
		})
	}
	return report
}

// anxietyTriggerCounts returns the top categories by the number of messages
// mentioning them.
func anxietyTriggerCounts(messages []types.Message) []severity.TriggerCount {
	counts := newCounter[string]()
	for _, msg := range messages {
		lower := strings.ToLower(msg.Content)
		for _, trigger := range anxietyTriggers {
			for _, kw := range trigger.keywords {
				if strings.Contains(lower, kw) {
					counts.Inc(trigger.name)
					break
				}
			}
		}
	}

	out := make([]severity.TriggerCount, 0, maxTriggers)
	for _, c := range counts.MostCommon(maxTriggers) {
		out = append(out, severity.TriggerCount{Trigger: c.Key, Count: c.Count})
	}
	return out
}

// anxietyTimePatterns names the most common time of day and weekday.
func anxietyTimePatterns(messages []types.Message) []string {
	hours := newCounter[int]()
	weekdays := newCounter[time.Weekday]()
	for _, msg := range messages {
		ts := msg.Timestamp.UTC()
		hours.Inc(ts.Hour())
		weekdays.Inc(ts.Weekday())
	}

	var patterns []string
	if hours.Len() > 0 {
		switch hour := hours.MostCommon(1)[0].Key; {
		case hour < 12:
			patterns = append(patterns, "Anxiety tends to occur in the morning")
		case hour < 17:
			patterns = append(patterns, "Anxiety tends to occur in the afternoon")
		default:
			patterns = append(patterns, "Anxiety tends to occur in the evening")
		}
	}
	if weekdays.Len() > 0 {
		day := weekdays.MostCommon(1)[0].Key
		patterns = append(patterns, fmt.Sprintf("More anxiety episodes on %ss", day))
	}
	return patterns
}
