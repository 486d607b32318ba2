package emotion

// Labels is the GoEmotions label set the classifier scores against.
var Labels = []string{
	"admiration", "amusement", "anger", "annoyance", "approval",
	"caring", "confusion", "curiosity", "desire", "disappointment",
	"disapproval", "disgust", "embarrassment", "excitement", "fear",
	"gratitude", "grief", "joy", "love", "nervousness",
	"optimism", "pride", "realization", "relief", "remorse",
	"sadness", "surprise", "neutral",
}

// Neutral is the label used when no emotion is present.
const Neutral = "neutral"

// Broad emotion categories.
const (
	CategoryPositive  = "positive"
	CategoryNegative  = "negative"
	CategoryNeutral   = "neutral"
	CategoryAmbiguous = "ambiguous"
)

var (
	positiveLabels = setOf(
		"admiration", "amusement", "approval", "caring", "excitement",
		"gratitude", "joy", "love", "optimism", "pride", "relief",
	)
	negativeLabels = setOf(
		"anger", "annoyance", "disappointment", "disapproval", "disgust",
		"embarrassment", "fear", "grief", "nervousness", "remorse", "sadness",
	)
	knownLabels = setOf(Labels...)
)

// Category maps a label onto its broad category. Unknown labels are ambiguous.
func Category(label string) string {
	switch {
	case positiveLabels[label]:
		return CategoryPositive
	case negativeLabels[label]:
		return CategoryNegative
	case label == Neutral:
		return CategoryNeutral
	default:
		return CategoryAmbiguous
	}
}

// IsLabel reports whether label belongs to the classifier label set.
func IsLabel(label string) bool {
	return knownLabels[label]
}

func setOf(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
