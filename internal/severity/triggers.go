package severity

import "strings"

// TriggerCount is one trigger category and how many messages mentioned it.
type TriggerCount struct {
	Trigger string `json:"trigger"`
	Count   int    `json:"count"`
}

// TriggerGeneral collects messages that match no specific category.
const TriggerGeneral = "general"

var triggerKeywords = []struct {
	name     string
	keywords []string
}{
	{"work", []string{"work", "job", "boss", "deadline", "project", "meeting", "presentation"}},
	{"social", []string{"people", "social", "friends", "party", "crowd", "public speaking"}},
	{"health", []string{"health", "sick", "pain", "doctor", "medical", "symptoms"}},
	{"family", []string{"family", "parents", "relationship", "partner", "kids"}},
	{"financial", []string{"money", "bills", "debt", "financial", "afford", "expensive"}},
}

// ClassifyTriggers counts, per category, the texts that mention it. A text may
// count toward several categories; texts matching none count as general.
// The result lists every category in fixed order, general last.
func ClassifyTriggers(texts []string) []TriggerCount {
	counts := make([]TriggerCount, 0, len(triggerKeywords)+1)
	for _, t := range triggerKeywords {
		counts = append(counts, TriggerCount{Trigger: t.name})
	}
	general := TriggerCount{Trigger: TriggerGeneral}

	for _, text := range texts {
		lower := strings.ToLower(text)
		found := false
		for i, t := range triggerKeywords {
			if containsAny(lower, t.keywords) {
				counts[i].Count++
				found = true
			}
		}
		if !found {
			general.Count++
		}
	}
	return append(counts, general)
}
