// Package severity scores anxiety and crisis risk in free-form user text.
package severity

import (
	"fmt"
	"strings"
)

// AnxietyLevel is the ordinal anxiety severity: none < mild < moderate < severe.
type AnxietyLevel int

const (
	AnxietyNone AnxietyLevel = iota
	AnxietyMild
	AnxietyModerate
	AnxietySevere
)

var anxietyNames = [...]string{"none", "mild", "moderate", "severe"}

func (l AnxietyLevel) String() string {
	if l < AnxietyNone || l > AnxietySevere {
		return anxietyNames[AnxietyNone]
	}
	return anxietyNames[l]
}

// Score maps the level onto the 0-3 scale used by reports.
func (l AnxietyLevel) Score() int {
	if l < AnxietyNone || l > AnxietySevere {
		return 0
	}
	return int(l)
}

func (l AnxietyLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *AnxietyLevel) UnmarshalText(text []byte) error {
	parsed, ok := lookupAnxiety(string(text))
	if !ok {
		return fmt.Errorf("unknown anxiety level: %q", string(text))
	}
	*l = parsed
	return nil
}

// ParseAnxietyLevel maps a stored label back to its level. Unknown labels map to none.
func ParseAnxietyLevel(s string) AnxietyLevel {
	level, _ := lookupAnxiety(s)
	return level
}

func lookupAnxiety(s string) (AnxietyLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return AnxietyNone, true
	case "mild":
		return AnxietyMild, true
	case "moderate":
		return AnxietyModerate, true
	case "severe":
		return AnxietySevere, true
	default:
		return AnxietyNone, false
	}
}

// CrisisLevel is the ordinal crisis risk: none < low < medium < high.
type CrisisLevel int

const (
	CrisisNone CrisisLevel = iota
	CrisisLow
	CrisisMedium
	CrisisHigh
)

var crisisNames = [...]string{"none", "low", "medium", "high"}

func (l CrisisLevel) String() string {
	if l < CrisisNone || l > CrisisHigh {
		return crisisNames[CrisisNone]
	}
	return crisisNames[l]
}

func (l CrisisLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *CrisisLevel) UnmarshalText(text []byte) error {
	parsed, ok := lookupCrisis(string(text))
	if !ok {
		return fmt.Errorf("unknown crisis level: %q", string(text))
	}
	*l = parsed
	return nil
}

// ParseCrisisLevel maps a stored label back to its level. Unknown labels map to none.
func ParseCrisisLevel(s string) CrisisLevel {
	level, _ := lookupCrisis(s)
	return level
}

func lookupCrisis(s string) (CrisisLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return CrisisNone, true
	case "low":
		return CrisisLow, true
	case "medium":
		return CrisisMedium, true
	case "high":
		return CrisisHigh, true
	default:
		return CrisisNone, false
	}
}
