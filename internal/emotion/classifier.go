// Package emotion classifies user text into scored GoEmotions labels.
package emotion

import (
	"context"
	"errors"
	"sort"
)

// ErrClassifierUnavailable marks a classifier that is unconfigured, timed out,
// or returned output that could not be trusted.
var ErrClassifierUnavailable = errors.New("emotion classifier unavailable")

// LabelScore is one scored label.
type LabelScore struct {
	Label string  `json:"emotion"`
	Score float64 `json:"score"`
}

// Result is the classifier output for one text.
type Result struct {
	PrimaryLabel string             `json:"primary_emotion"`
	Confidence   float64            `json:"confidence"`
	Ranked       []LabelScore       `json:"top_emotions"`
	AllScores    map[string]float64 `json:"all_scores"`
}

// Classifier maps text to scored emotion labels.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

// anxietyLabels feed the anxiety scorer. Only nervousness and fear exist in
// GoEmotions; the rest are accepted from classifiers with wider label sets.
var anxietyLabels = []string{"anxiety", "worry", "nervousness", "fear", "panic"}

// NewResult ranks scores and keeps the topK best as Ranked. Ties are ordered by label.
func NewResult(scores map[string]float64, topK int) *Result {
	ranked := make([]LabelScore, 0, len(scores))
	for label, score := range scores {
		ranked = append(ranked, LabelScore{Label: label, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Label < ranked[j].Label
	})

	result := &Result{
		PrimaryLabel: Neutral,
		AllScores:    scores,
	}
	if len(ranked) > 0 {
		result.PrimaryLabel = ranked[0].Label
		result.Confidence = ranked[0].Score
	}
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	result.Ranked = ranked
	return result
}

// AnxietyScore is the strongest anxiety-adjacent label score, 0 when r is nil.
func AnxietyScore(r *Result) float64 {
	if r == nil {
		return 0
	}
	best := 0.0
	for _, label := range anxietyLabels {
		if score, ok := r.AllScores[label]; ok && score > best {
			best = score
		}
	}
	return best
}
