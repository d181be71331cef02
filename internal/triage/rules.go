package triage

import (
	"fmt"
	"sort"
	"strings"
)

// KeySeparator joins canonical symptom labels into a rule key.
const KeySeparator = ","

// DefaultRedFlags are the symptoms that always escalate to high risk.
var DefaultRedFlags = []string{"chest pain", "difficulty breathing"}

// CanonicalKey builds the lookup key for a symptom combination:
// normalize, drop blanks and duplicates, sort, join.
// Rule tables and requests both go through here.
func CanonicalKey(labels []string) string {
	return strings.Join(canonicalLabels(labels), KeySeparator)
}

func canonicalLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = normalize(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RuleSpec is the external form of a rule, as written in a rule file.
type RuleSpec struct {
	Symptoms  []string `yaml:"symptoms" json:"symptoms"`
	Condition string   `yaml:"condition" json:"condition"`
	Risk      string   `yaml:"risk" json:"risk"`
	Advice    string   `yaml:"advice" json:"advice"`
	Urgency   string   `yaml:"urgency" json:"urgency"`
}

// ConditionRule maps one symptom combination to a triage outcome.
type ConditionRule struct {
	Key       string
	Symptoms  []string
	Condition string
	Risk      Risk
	Advice    string
	Urgency   string
}

// RuleTable is an immutable, ordered set of condition rules. Order matters:
// partial matching picks the first qualifying rule.
type RuleTable struct {
	rules    []ConditionRule
	byKey    map[string]int
	redFlags []string
}

// NewRuleTable validates specs and builds a table. redFlags extend
// DefaultRedFlags; the defaults cannot be removed.
func NewRuleTable(specs []RuleSpec, redFlags []string) (*RuleTable, error) {
	t := &RuleTable{
		rules:    make([]ConditionRule, 0, len(specs)),
		byKey:    make(map[string]int, len(specs)),
		redFlags: canonicalLabels(append(append([]string(nil), DefaultRedFlags...), redFlags...)),
	}

	for i, spec := range specs {
		symptoms := canonicalLabels(spec.Symptoms)
		if len(symptoms) == 0 {
			return nil, fmt.Errorf("%w: rule %d has no symptoms", ErrInvalidRule, i)
		}
		condition := strings.TrimSpace(spec.Condition)
		if condition == "" {
			return nil, fmt.Errorf("%w: rule %d has no condition", ErrInvalidRule, i)
		}
		risk, ok := ParseRisk(spec.Risk)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d (%s) has unknown risk %q", ErrInvalidRule, i, condition, spec.Risk)
		}
		key := strings.Join(symptoms, KeySeparator)
		if prev, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("%w: rule %d duplicates key %q of rule %d", ErrInvalidRule, i, key, prev)
		}

		t.byKey[key] = len(t.rules)
		t.rules = append(t.rules, ConditionRule{
			Key:       key,
			Symptoms:  symptoms,
			Condition: condition,
			Risk:      risk,
			Advice:    strings.TrimSpace(spec.Advice),
			Urgency:   strings.TrimSpace(spec.Urgency),
		})
	}
	return t, nil
}

// Rules returns the table itself, so a fixed table can be handed to an
// Advisor directly.
func (t *RuleTable) Rules() *RuleTable { return t }

func (t *RuleTable) Len() int { return len(t.rules) }

// All returns a copy of the rules in table order.
func (t *RuleTable) All() []ConditionRule {
	out := make([]ConditionRule, len(t.rules))
	for i, r := range t.rules {
		r.Symptoms = append([]string(nil), r.Symptoms...)
		out[i] = r
	}
	return out
}

func (t *RuleTable) RedFlags() []string {
	return append([]string(nil), t.redFlags...)
}

func (t *RuleTable) lookup(key string) (ConditionRule, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return ConditionRule{}, false
	}
	return t.rules[i], true
}
