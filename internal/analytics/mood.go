package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/types"
)

// Trend directions.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// Sentiments.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// emptyDayScore marks a day without messages. It sits on the positive side of
// the [-1, 1] scale used for days with data.
const emptyDayScore = 0.5

// defaultConfidence stands in for a label stored without a confidence.
const defaultConfidence = 0.5

var (
	moodPositive = map[string]bool{
		"joy": true, "gratitude": true, "love": true, "pride": true, "relief": true,
		"optimism": true, "amusement": true, "excitement": true, "admiration": true,
	}
	moodNegative = map[string]bool{
		"sadness": true, "anger": true, "fear": true, "disgust": true, "grief": true,
		"disappointment": true, "nervousness": true, "annoyance": true, "embarrassment": true,
	}
)

// DailyMood is one calendar day of a trend report.
type DailyMood struct {
	Date            string  `json:"date"`
	MoodScore       float64 `json:"mood_score"`
	EmotionCount    int     `json:"emotion_count"`
	DominantEmotion string  `json:"dominant_emotion"`
}

// EmotionCount is a label and how often it occurred.
type EmotionCount struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// TrendReport is the mood trend over a period.
type TrendReport struct {
	Period           Period         `json:"period"`
	PeriodDays       int            `json:"period_days"`
	MessageCount     int            `json:"message_count"`
	DailyMoods       []DailyMood    `json:"daily_moods"`
	DominantEmotions []EmotionCount `json:"dominant_emotions"`
	AverageSentiment string         `json:"average_sentiment"`
	AverageScore     float64        `json:"average_score"`
	Trend            string         `json:"trend"`
}

// MoodTrend reports the user's mood over period.
func (e *Engine) MoodTrend(ctx context.Context, userID string, period Period) (*TrendReport, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	if period == "" {
		period = PeriodWeek
	}

	now := e.clock()
	name := fmt.Sprintf("mood:%s:%s", period, now.Format(dateLayout))
	return cached(ctx, e, userID, name, func() (*TrendReport, error) {
		w := resolveWindow(period, now)
		messages, err := e.source.QueryUserMessages(ctx, types.MessageQuery{
			UserID:         userID,
			Start:          w.start,
			End:            w.end,
			RequireEmotion: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load messages for mood trend: %w", err)
		}
		return buildTrendReport(period, w, messages), nil
	})
}

func buildTrendReport(period Period, w window, messages []types.Message) *TrendReport {
	report := &TrendReport{
		Period:           period,
		PeriodDays:       w.days,
		MessageCount:     len(messages),
		DailyMoods:       []DailyMood{},
		DominantEmotions: []EmotionCount{},
		AverageSentiment: SentimentNeutral,
		AverageScore:     emptyDayScore,
		Trend:            TrendStable,
	}
	// An empty week reports no activity instead of a row of neutral days.
	if period == PeriodWeek && len(messages) == 0 {
		return report
	}

	report.DailyMoods = dailyMoods(w, messages)

	overall := newCounter[string]()
	for _, msg := range messages {
		overall.Inc(msg.Emotion)
	}
	for _, c := range overall.MostCommon(5) {
		report.DominantEmotions = append(report.DominantEmotions, EmotionCount{Emotion: c.Key, Count: c.Count})
	}

	avg := averageActiveScore(report.DailyMoods)
	report.AverageScore = round(avg, 2)
	report.AverageSentiment = sentimentFor(avg)
	report.Trend = detectTrend(report.DailyMoods)
	return report
}

// dailyMoods buckets messages by UTC day and fills every day of w.
func dailyMoods(w window, messages []types.Message) []DailyMood {
	byDay := make(map[string][]types.Message)
	for _, msg := range messages {
		key := msg.Timestamp.UTC().Format(dateLayout)
		byDay[key] = append(byDay[key], msg)
	}

	moods := make([]DailyMood, 0, w.days)
	eachDay(w.start, w.end, func(day time.Time) {
		key := day.Format(dateLayout)
		bucket := byDay[key]
		if len(bucket) == 0 {
			moods = append(moods, DailyMood{
				Date:            key,
				MoodScore:       emptyDayScore,
				DominantEmotion: emotion.Neutral,
			})
			return
		}
		labels := newCounter[string]()
		for _, msg := range bucket {
			labels.Inc(msg.Emotion)
		}
		moods = append(moods, DailyMood{
			Date:            key,
			MoodScore:       moodScore(bucket),
			EmotionCount:    len(bucket),
			DominantEmotion: labels.MostCommon(1)[0].Key,
		})
	})
	return moods
}

// moodScore is the mean signed confidence of a day's labels, clamped to [-1, 1].
func moodScore(messages []types.Message) float64 {
	if len(messages) == 0 {
		return emptyDayScore
	}
	var sum float64
	for _, msg := range messages {
		confidence := defaultConfidence
		if msg.EmotionConfidence != nil {
			confidence = *msg.EmotionConfidence
		}
		switch {
		case moodPositive[msg.Emotion]:
			sum += confidence
		case moodNegative[msg.Emotion]:
			sum -= confidence
		}
	}
	return max(-1, min(1, sum/float64(len(messages))))
}

// averageActiveScore averages days that had messages; placeholder days are skipped.
func averageActiveScore(moods []DailyMood) float64 {
	var sum float64
	n := 0
	for _, m := range moods {
		if m.EmotionCount > 0 {
			sum += m.MoodScore
			n++
		}
	}
	if n == 0 {
		return emptyDayScore
	}
	return sum / float64(n)
}

func sentimentFor(score float64) string {
	switch {
	case score > 0.3:
		return SentimentPositive
	case score < -0.3:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// detectTrend compares the mean of the first and second half of the series.
// The second half takes the extra day on odd lengths.
func detectTrend(moods []DailyMood) string {
	if len(moods) < 3 {
		return TrendStable
	}
	mid := len(moods) / 2
	first := meanScore(moods[:mid])
	second := meanScore(moods[mid:])

	switch diff := second - first; {
	case diff > 0.2:
		return TrendImproving
	case diff < -0.2:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanScore(moods []DailyMood) float64 {
	var sum float64
	for _, m := range moods {
		sum += m.MoodScore
	}
	return sum / float64(len(moods))
}
