package severity

// Hotline is a phone line offered alongside a detected crisis.
type Hotline struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

// TextLine is an SMS crisis line.
type TextLine struct {
	Number      string `json:"number"`
	Description string `json:"description"`
}

// ChatLine is an online crisis chat.
type ChatLine struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Resources are the crisis contacts attached to every detected crisis signal.
type Resources struct {
	Hotline Hotline  `json:"hotline"`
	Text    TextLine `json:"text"`
	Chat    ChatLine `json:"chat"`
}

// NewResources builds the resource set from the configured numbers.
func NewResources(hotline, textNumber, chatURL string) Resources {
	return Resources{
		Hotline: Hotline{
			Name:        "988 Suicide & Crisis Lifeline",
			Number:      hotline,
			Description: "24/7 free and confidential support",
		},
		Text: TextLine{
			Number:      textNumber,
			Description: "Text HOME to " + textNumber,
		},
		Chat: ChatLine{
			URL:         chatURL,
			Description: "Online crisis chat support",
		},
	}
}

// DefaultResources are the US 988 Lifeline contacts.
func DefaultResources() Resources {
	return NewResources("988", "741741", "https://988lifeline.org/chat")
}

// InterventionMessage returns the fixed supportive message for a severity; empty for none.
func InterventionMessage(level CrisisLevel) string {
	switch level {
	case CrisisHigh:
		return "I'm very concerned about what you're sharing. Your safety is the most important thing right now. " +
			"Please reach out to a crisis counselor immediately. You don't have to face this alone."
	case CrisisMedium:
		return "I hear that you're going through a really difficult time. It's important to talk to someone who can help. " +
			"Please consider reaching out to a mental health professional or crisis support."
	case CrisisLow:
		return "It sounds like you're struggling right now. It's okay to ask for help. " +
			"Talking to a counselor or trusted person might be helpful."
	default:
		return ""
	}
}

// SafetyPlan returns the standard safety plan steps.
func SafetyPlan() []string {
	return []string{
		"Identify warning signs that a crisis may be developing",
		"Use internal coping strategies (breathing, grounding)",
		"Reach out to people who can provide support",
		"Contact mental health professionals",
		"Remove or secure potentially harmful items",
		"Make your environment safe",
	}
}

// AnxietyRecommendations returns coping suggestions for a severity level.
func AnxietyRecommendations(level AnxietyLevel) []string {
	switch level {
	case AnxietySevere:
		return []string{
			"Consider speaking with a mental health professional",
			"Practice deep breathing exercises (4-7-8 technique)",
			"Reach out to a trusted friend or family member",
			"Try grounding techniques (5-4-3-2-1 method)",
			"Consider crisis support if feeling overwhelmed",
		}
	case AnxietyModerate:
		return []string{
			"Practice daily mindfulness or meditation",
			"Maintain a regular sleep schedule",
			"Engage in regular physical exercise",
			"Limit caffeine and alcohol intake",
			"Keep a worry journal to track patterns",
		}
	case AnxietyMild:
		return []string{
			"Take short breaks throughout the day",
			"Practice progressive muscle relaxation",
			"Spend time in nature or outdoors",
			"Connect with supportive people",
			"Engage in activities you enjoy",
		}
	default:
		return []string{
			"Continue your current self-care practices",
			"Maintain healthy lifestyle habits",
			"Stay connected with loved ones",
		}
	}
}
