package severity

import "regexp"

// TierCounts are the per-tier pattern hit counts behind a crisis assessment.
type TierCounts struct {
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
	Protective int `json:"protective"`
}

// CrisisSignal is the scored crisis assessment of one message.
type CrisisSignal struct {
	Detected              bool        `json:"crisis_detected"`
	Severity              CrisisLevel `json:"severity"`
	Confidence            float64     `json:"confidence"`
	Keywords              []string    `json:"keywords_found"`
	ImmediateIntervention bool        `json:"immediate_intervention"`
	Resources             *Resources  `json:"resources,omitempty"`
	InterventionMessage   string      `json:"intervention_message,omitempty"`
	Scores                TierCounts  `json:"scores"`
	// Precautionary marks a signal substituted because scoring could not run.
	Precautionary bool `json:"precautionary,omitempty"`
}

// CrisisScorer detects self-harm and suicidal ideation with tiered patterns.
// It is safe for concurrent use.
type CrisisScorer struct {
	high       []*regexp.Regexp
	medium     []*regexp.Regexp
	low        []*regexp.Regexp
	protective []*regexp.Regexp
	resources  Resources
}

// NewCrisisScorer compiles the tier tables. resources is attached to every detected signal.
func NewCrisisScorer(resources Resources) *CrisisScorer {
	return &CrisisScorer{
		high: compileAll(
			`\b(kill myself|end my life|take my life)\b`,
			`\b(suicide|suicidal)\b`,
			`\b(want to die|wish i was dead|better off dead)\b`,
			`\b(going to hurt myself|going to kill myself)\b`,
			`\b(have a plan|made a plan)\b`,
			`\b(goodbye|final goodbye|last time)\b`,
			`\b(no reason to live|nothing to live for)\b`,
			`\b(can't go on|can't take it anymore)\b`,
		),
		medium: compileAll(
			`\b(thinking about suicide|thoughts of suicide)\b`,
			`\b(self-harm|hurt myself|cut myself)\b`,
			`\b(end it all|give up)\b`,
			`\b(everyone would be better off|burden to everyone)\b`,
			`\b(hopeless|no hope|pointless)\b`,
			`\b(worthless|useless|failure)\b`,
			`\b(can't do this|too much to handle)\b`,
		),
		low: compileAll(
			`\b(don't want to be here|wish i wasn't here)\b`,
			`\b(tired of living|exhausted)\b`,
			`\b(what's the point|why bother)\b`,
			`\b(giving up|lost hope)\b`,
			`\b(dark thoughts|intrusive thoughts)\b`,
		),
		protective: compileAll(
			`\b(but i won't|but i wouldn't|just thoughts)\b`,
			`\b(not going to|won't actually)\b`,
			`\b(seeking help|need help|want help)\b`,
			`\b(therapy|therapist|counselor)\b`,
			`\b(family|friends|loved ones)\b`,
			`\b(reasons to live|things to live for)\b`,
		),
		resources: resources,
	}
}

// Score assesses text. Empty text yields an undetected none signal.
func (s *CrisisScorer) Score(text string) CrisisSignal {
	signal := CrisisSignal{Severity: CrisisNone, Keywords: []string{}}

	lower := normalize(text)
	if lower == "" {
		return signal
	}

	var counts TierCounts
	counts.High = s.scan(lower, s.high, &signal.Keywords)
	counts.Medium = s.scan(lower, s.medium, &signal.Keywords)
	counts.Low = s.scan(lower, s.low, &signal.Keywords)
	counts.Protective = s.scan(lower, s.protective, nil)

	signal.Scores = counts
	signal.Severity, signal.Confidence = CrisisSeverity(counts)
	// Protective factors soften severity but never suppress detection.
	signal.Detected = counts.High+counts.Medium+counts.Low > 0
	signal.ImmediateIntervention = signal.Severity == CrisisHigh
	if signal.Detected {
		resources := s.resources
		signal.Resources = &resources
		signal.InterventionMessage = InterventionMessage(signal.Severity)
	}
	return signal
}

// Precautionary returns the signal callers substitute when scoring cannot run:
// treated as potentially crisis-positive, with resources attached.
func (s *CrisisScorer) Precautionary() CrisisSignal {
	resources := s.resources
	return CrisisSignal{
		Detected:            true,
		Severity:            CrisisMedium,
		Confidence:          0,
		Keywords:            []string{},
		Resources:           &resources,
		InterventionMessage: InterventionMessage(CrisisMedium),
		Precautionary:       true,
	}
}

func (s *CrisisScorer) scan(lower string, patterns []*regexp.Regexp, evidence *[]string) int {
	count := 0
	for _, pattern := range patterns {
		match := pattern.FindString(lower)
		if match == "" {
			continue
		}
		count++
		if evidence != nil && len(*evidence) < maxEvidence {
			*evidence = append(*evidence, match)
		}
	}
	return count
}

// CrisisSeverity applies the weighted tier rules. The first matching rule wins.
func CrisisSeverity(counts TierCounts) (CrisisLevel, float64) {
	raw := 3*counts.High + 2*counts.Medium + counts.Low
	adjusted := max(0, raw-counts.Protective)

	switch {
	case counts.High > 0 || adjusted >= 5:
		return CrisisHigh, min(0.9+0.05*float64(counts.High), 1.0)
	case counts.Medium > 0 || adjusted >= 3:
		return CrisisMedium, min(0.7+0.1*float64(counts.Medium), 1.0)
	case counts.Low > 0 || adjusted >= 1:
		return CrisisLow, min(0.5+0.1*float64(counts.Low), 1.0)
	default:
		return CrisisNone, 0
	}
}
