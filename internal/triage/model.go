package triage

import (
	"sort"
	"strings"
	"time"
)

// Severity is the patient's self-rated severity. The zero value means
// the patient did not say.
type Severity string

const (
	SeverityUnspecified Severity = ""
	SeverityMild        Severity = "mild"
	SeverityModerate    Severity = "moderate"
	SeveritySevere      Severity = "severe"
)

// ParseSeverity decodes user-entered severity text. Unknown text maps to
// SeverityUnspecified and ok=false so the caller can log it.
func ParseSeverity(raw string) (Severity, bool) {
	switch s := Severity(normalize(raw)); s {
	case SeverityUnspecified, SeverityMild, SeverityModerate, SeveritySevere:
		return s, true
	default:
		return SeverityUnspecified, false
	}
}

// Risk is the coarse risk tier of a triage result.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

func ParseRisk(raw string) (Risk, bool) {
	switch r := Risk(normalize(raw)); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r, true
	default:
		return "", false
	}
}

// MatchKind records which branch of the matcher produced the base result.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchPartial MatchKind = "partial"
	MatchDefault MatchKind = "default"
)

// SymptomSet is an unordered collection of unique, normalized symptom labels.
type SymptomSet struct {
	labels []string
}

// NewSymptomSet normalizes labels, drops blanks and duplicates.
func NewSymptomSet(labels ...string) SymptomSet {
	return SymptomSet{labels: canonicalLabels(labels)}
}

// Labels returns the sorted labels. The slice is a copy.
func (s SymptomSet) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

func (s SymptomSet) Len() int { return len(s.labels) }

func (s SymptomSet) Contains(label string) bool {
	label = normalize(label)
	i := sort.SearchStrings(s.labels, label)
	return i < len(s.labels) && s.labels[i] == label
}

// containsFragment reports whether any label contains fragment as a substring.
func (s SymptomSet) containsFragment(fragment string) bool {
	for _, l := range s.labels {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}

// Context carries the auxiliary inputs of a triage request. They take no
// part in matching.
type Context struct {
	Duration string
	Severity Severity
}

// Result is the outcome of one triage call.
type Result struct {
	Condition   string    `json:"condition"`
	Risk        Risk      `json:"risk"`
	Advice      string    `json:"advice"`
	Urgency     string    `json:"urgency"`
	Symptoms    []string  `json:"symptoms"`
	Duration    string    `json:"duration"`
	Severity    Severity  `json:"severity"`
	GeneratedAt time.Time `json:"generatedAt"`
	Match       MatchKind `json:"match"`
	Escalated   bool      `json:"escalated"`
}
