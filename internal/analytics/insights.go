package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/easeaico/serenia/internal/types"
	"golang.org/x/sync/errgroup"
)

const maxRecommendations = 3

var defaultRecommendations = []string{
	"Continue journaling your thoughts and feelings",
	"Maintain regular sleep and exercise routines",
	"Stay connected with supportive people",
}

var upliftingEmotions = map[string]bool{"joy": true, "love": true, "optimism": true}

// MoodSummary is the mood part of an insight report.
type MoodSummary struct {
	AverageSentiment string `json:"average_sentiment"`
	Trend            string `json:"trend"`
}

// AnxietySummary is the anxiety part of an insight report.
type AnxietySummary struct {
	Detected bool `json:"detected"`
	Episodes int  `json:"episodes"`
}

// Insights are templated observations over a weekly or monthly period.
type Insights struct {
	Period          string         `json:"period"`
	PeriodDays      int            `json:"period_days"`
	Insights        []string       `json:"insights"`
	Recommendations []string       `json:"recommendations"`
	MoodSummary     MoodSummary    `json:"mood_summary"`
	AnxietySummary  AnxietySummary `json:"anxiety_summary"`
}

// GenerateInsights composes the mood trend and anxiety patterns of period
// (weekly or monthly) into insight sentences and recommendations.
func (e *Engine) GenerateInsights(ctx context.Context, userID, period string) (*Insights, error) {
	period, err := ParseInsightPeriod(period)
	if err != nil {
		return nil, err
	}

	moodPeriod, days := PeriodWeek, 7
	if period == InsightsMonthly {
		moodPeriod, days = PeriodMonth, 30
	}

	now := e.clock()
	name := fmt.Sprintf("insights:%s:%s", period, now.Format(dateLayout))
	return cached(ctx, e, userID, name, func() (*Insights, error) {
		mood, err := e.MoodTrend(ctx, userID, moodPeriod)
		if err != nil {
			return nil, err
		}
		anxiety, err := e.AnxietyPatterns(ctx, userID, days)
		if err != nil {
			return nil, err
		}
		return composeInsights(period, days, mood, anxiety), nil
	})
}

func composeInsights(period string, days int, mood *TrendReport, anxiety *AnxietyReport) *Insights {
	var insights, recommendations []string

	if mood.MessageCount > 0 {
		switch mood.Trend {
		case TrendImproving:
			insights = append(insights, fmt.Sprintf("Great news! Your mood trends show an improvement over the past %d days.", days))
		case TrendDeclining:
			insights = append(insights, "We've noticed a decline in your mood recently. Remember, ups and downs are a natural part of the journey.")
			recommendations = append(recommendations, "Practice self-care activities that bring you joy")
		default:
			insights = append(insights, fmt.Sprintf("Your mood has remained relatively stable over the past %d days.", days))
		}
	}

	if len(mood.DominantEmotions) > 0 {
		top := mood.DominantEmotions[0].Emotion
		followUp := "Acknowledging this is the first step to processing it."
		if upliftingEmotions[top] {
			followUp = "It's great to embrace this feeling."
		}
		insights = append(insights, fmt.Sprintf("Your dominant emotion recently has been %s. %s", top, followUp))
	}

	if anxiety.AnxietyDetected {
		insights = append(insights, fmt.Sprintf("We identified %d moments of anxiety in your recent conversations. Awareness is key to management.", anxiety.Episodes))
		recommendations = append(recommendations, "Try deep breathing exercises when feeling anxious")
		if len(anxiety.Triggers) > 0 {
			insights = append(insights, fmt.Sprintf("It seems '%s' comes up often when you feel anxious. Identifying triggers helps you prepare.", anxiety.Triggers[0].Trigger))
		}
	}

	if mood.Trend == TrendImproving && !anxiety.AnxietyDetected {
		insights = append(insights, "You're thriving! Your mood is on the rise and anxiety markers are absent.")
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, defaultRecommendations...)
	}
	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	if insights == nil {
		insights = []string{}
	}

	return &Insights{
		Period:          period,
		PeriodDays:      days,
		Insights:        insights,
		Recommendations: recommendations,
		MoodSummary: MoodSummary{
			AverageSentiment: mood.AverageSentiment,
			Trend:            mood.Trend,
		},
		AnxietySummary: AnxietySummary{
			Detected: anxiety.AnxietyDetected,
			Episodes: anxiety.Episodes,
		},
	}
}

// MoodWindow is the mood part of a summary.
type MoodWindow struct {
	AverageSentiment string `json:"average_sentiment"`
	Trend            string `json:"trend"`
	MessageCount     int    `json:"message_count"`
}

// AnxietyOverview is the anxiety part of a summary.
type AnxietyOverview struct {
	Detected      bool    `json:"detected"`
	Episodes30Day int     `json:"episodes_30_day"`
	TopTrigger    *string `json:"top_trigger"`
}

// InsightDigest holds the leading insights and recommendations.
type InsightDigest struct {
	Latest          []string `json:"latest"`
	Recommendations []string `json:"recommendations"`
}

// Summary is the dashboard overview of a user.
type Summary struct {
	UserID           string                `json:"user_id"`
	MoodTrends       map[string]MoodWindow `json:"mood_trends"`
	Anxiety          AnxietyOverview       `json:"anxiety"`
	Insights         InsightDigest         `json:"insights"`
	DominantEmotions []EmotionCount        `json:"dominant_emotions"`
}

// Summary gathers the weekly and monthly mood, 30-day anxiety and weekly
// insights concurrently.
func (e *Engine) Summary(ctx context.Context, userID string) (*Summary, error) {
	var (
		week, month *TrendReport
		anxiety     *AnxietyReport
		insights    *Insights
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		week, err = e.MoodTrend(gctx, userID, PeriodWeek)
		return err
	})
	g.Go(func() (err error) {
		month, err = e.MoodTrend(gctx, userID, PeriodMonth)
		return err
	})
	g.Go(func() (err error) {
		anxiety, err = e.AnxietyPatterns(gctx, userID, defaultAnxietyDays)
		return err
	})
	g.Go(func() (err error) {
		insights, err = e.GenerateInsights(gctx, userID, InsightsWeekly)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build summary: %w", err)
	}

	summary := &Summary{
		UserID: userID,
		MoodTrends: map[string]MoodWindow{
			"7_day":  moodWindow(week),
			"30_day": moodWindow(month),
		},
		Anxiety: AnxietyOverview{
			Detected:      anxiety.AnxietyDetected,
			Episodes30Day: anxiety.Episodes,
		},
		Insights: InsightDigest{
			Latest:          firstN(insights.Insights, 2),
			Recommendations: firstN(insights.Recommendations, 2),
		},
		DominantEmotions: firstN(week.DominantEmotions, 3),
	}
	if len(anxiety.Triggers) > 0 {
		top := anxiety.Triggers[0].Trigger
		summary.Anxiety.TopTrigger = &top
	}
	return summary, nil
}

func moodWindow(r *TrendReport) MoodWindow {
	return MoodWindow{
		AverageSentiment: r.AverageSentiment,
		Trend:            r.Trend,
		MessageCount:     r.MessageCount,
	}
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append([]T{}, items...)
}

// WeekScore is one side of a progress comparison.
type WeekScore struct {
	Sentiment string  `json:"sentiment,omitempty"`
	Score     float64 `json:"score"`
	Trend     string  `json:"trend,omitempty"`
}

// Progress compares the last seven days with the seven before them.
type Progress struct {
	UserID                string    `json:"user_id"`
	Status                string    `json:"status"`
	Message               string    `json:"message"`
	CurrentWeek           WeekScore `json:"current_week"`
	PreviousWeek          WeekScore `json:"previous_week"`
	Improvement           float64   `json:"improvement"`
	ImprovementPercentage float64   `json:"improvement_percentage"`
}

// Progress compares days 0-6 with days 7-13 before today. The two windows do
// not overlap.
func (e *Engine) Progress(ctx context.Context, userID string) (*Progress, error) {
	now := e.clock()
	today := dayOf(now)
	current := window{start: today.AddDate(0, 0, -6), end: now, days: 7}
	previous := window{
		start: today.AddDate(0, 0, -13),
		end:   today.AddDate(0, 0, -6).Add(-time.Nanosecond),
		days:  7,
	}

	messages, err := e.source.QueryUserMessages(ctx, types.MessageQuery{
		UserID:         userID,
		Start:          previous.start,
		End:            current.end,
		RequireEmotion: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for progress: %w", err)
	}

	var currentMsgs, previousMsgs []types.Message
	for _, msg := range messages {
		if msg.Timestamp.Before(current.start) {
			previousMsgs = append(previousMsgs, msg)
		} else {
			currentMsgs = append(currentMsgs, msg)
		}
	}

	currentMoods := dailyMoods(current, currentMsgs)
	currentScore := averageActiveScore(currentMoods)
	previousScore := averageActiveScore(dailyMoods(previous, previousMsgs))
	improvement := currentScore - previousScore

	p := &Progress{
		UserID: userID,
		CurrentWeek: WeekScore{
			Sentiment: sentimentFor(currentScore),
			Score:     round(currentScore, 2),
			Trend:     detectTrend(currentMoods),
		},
		PreviousWeek:          WeekScore{Score: round(previousScore, 2)},
		Improvement:           round(improvement, 2),
		ImprovementPercentage: round(improvement*100, 1),
	}
	switch {
	case improvement > 0.2:
		p.Status = TrendImproving
		p.Message = "Your mood has improved significantly this week!"
	case improvement < -0.2:
		p.Status = TrendDeclining
		p.Message = "Your mood has declined this week. Consider reaching out for support."
	default:
		p.Status = TrendStable
		p.Message = "Your mood has been relatively stable this week."
	}
	return p, nil
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
