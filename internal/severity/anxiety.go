package severity

import (
	"math"
	"regexp"
	"strings"
)

const (
	maxEvidence = 5

	classifierWeight = 0.6
	markerWeight     = 0.4
)

// Marker categories, in scan order.
const (
	CategoryCognitive  = "cognitive"
	CategoryPhysical   = "physical"
	CategoryBehavioral = "behavioral"
	CategoryEmotional  = "emotional"
)

type markerCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// AnxietySignal is the scored anxiety assessment of one message.
type AnxietySignal struct {
	Detected        bool           `json:"anxiety_detected"`
	Severity        AnxietyLevel   `json:"severity"`
	Confidence      float64        `json:"confidence"`
	Markers         []string       `json:"markers_found"`
	CategoryScores  map[string]int `json:"category_scores"`
	ClassifierScore float64        `json:"ml_score"`
	MarkerScore     float64        `json:"marker_score"`
}

// AnxietyScorer blends lexical markers with an external classifier score.
// It holds only immutable pattern tables and is safe for concurrent use.
type AnxietyScorer struct {
	categories []markerCategory
	severe     []string
	moderate   []string
	mild       []string
}

// NewAnxietyScorer compiles the marker tables.
func NewAnxietyScorer() *AnxietyScorer {
	return &AnxietyScorer{
		categories: []markerCategory{
			{name: CategoryCognitive, patterns: compileAll(
				`\b(can't stop thinking|racing thoughts|mind won't stop)\b`,
				`\b(worried|worrying|worry)\b`,
				`\b(overthinking|can't focus|distracted)\b`,
				`\b(what if|worst case)\b`,
			)},
			{name: CategoryPhysical, patterns: compileAll(
				`\b(heart racing|pounding|palpitations)\b`,
				`\b(sweating|shaking|trembling)\b`,
				`\b(shortness of breath|can't breathe)\b`,
				`\b(dizzy|lightheaded|nauseous)\b`,
				`\b(tense|tight chest|stomach)\b`,
			)},
			{name: CategoryBehavioral, patterns: compileAll(
				`\b(avoiding|can't face|putting off)\b`,
				`\b(restless|can't sit still|pacing)\b`,
				`\b(can't sleep|insomnia|nightmares)\b`,
			)},
			{name: CategoryEmotional, patterns: compileAll(
				`\b(anxious|nervous|on edge)\b`,
				`\b(scared|afraid|fearful|terrified)\b`,
				`\b(overwhelmed|stressed out)\b`,
				`\b(panic|panicking|freaking out)\b`,
			)},
		},
		severe: []string{
			"can't function", "unbearable", "constant", "always",
			"every day", "all the time", "can't cope", "breaking down",
		},
		moderate: []string{
			"often", "frequently", "most days", "hard to",
			"difficult", "struggling", "interfering",
		},
		mild: []string{
			"sometimes", "occasionally", "a little", "bit",
			"slightly", "minor", "manageable",
		},
	}
}

// Score assesses text. classifierScore is the external anxiety probability;
// pass 0 when no classifier output is available.
func (s *AnxietyScorer) Score(text string, classifierScore float64) AnxietySignal {
	signal := AnxietySignal{
		Severity:       AnxietyNone,
		Markers:        []string{},
		CategoryScores: make(map[string]int, len(s.categories)),
	}
	for _, category := range s.categories {
		signal.CategoryScores[category.name] = 0
	}

	lower := normalize(text)
	if lower == "" {
		return signal
	}

	hits := 0
	for _, category := range s.categories {
		for _, pattern := range category.patterns {
			match := pattern.FindString(lower)
			if match == "" {
				continue
			}
			hits++
			signal.CategoryScores[category.name]++
			if len(signal.Markers) < maxEvidence {
				signal.Markers = append(signal.Markers, match)
			}
		}
	}

	classifierScore = clamp01(classifierScore)
	markerScore := min(float64(hits)/10, 1.0)
	combined := classifierWeight*classifierScore + markerWeight*markerScore

	signal.ClassifierScore = classifierScore
	signal.MarkerScore = markerScore
	signal.Confidence = combined
	signal.Severity = AnxietyLevelForScore(s.adjust(lower, combined))
	// Any marker is enough to flag anxiety, even when the adjusted score maps to none.
	signal.Detected = combined > 0.3 || hits > 0
	return signal
}

// adjust applies exactly one keyword tier: severe, then moderate, then mild.
func (s *AnxietyScorer) adjust(lower string, score float64) float64 {
	switch {
	case containsAny(lower, s.severe):
		return min(score+0.2, 1.0)
	case containsAny(lower, s.moderate):
		return min(score+0.1, 1.0)
	case containsAny(lower, s.mild):
		return max(score-0.1, 0.0)
	default:
		return score
	}
}

// AnxietyLevelForScore maps an adjusted score onto a level; lower bounds are inclusive.
func AnxietyLevelForScore(score float64) AnxietyLevel {
	switch {
	case score >= 0.7:
		return AnxietySevere
	case score >= 0.5:
		return AnxietyModerate
	case score >= 0.3:
		return AnxietyMild
	default:
		return AnxietyNone
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

func normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	// Curly apostrophes from mobile keyboards.
	return strings.ReplaceAll(lower, "’", "'")
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
