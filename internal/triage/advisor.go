package triage

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// MinPartialMatches is how many of a rule's symptoms must be present for the
// partial matcher to select it.
const MinPartialMatches = 2

// Fallback and escalation outcomes.
const (
	DefaultCondition = "General Health Concern"
	DefaultAdvice    = "Your symptoms require medical evaluation. Please consult with a doctor for proper diagnosis."
	DefaultUrgency   = "Schedule appointment soon"

	EscalatedUrgency = "Seek immediate medical attention"
)

// RuleSource yields the rule table snapshot to use for one triage call.
type RuleSource interface {
	Rules() *RuleTable
}

// Advisor maps reported symptoms to a triage suggestion. It holds no
// mutable state and is safe for concurrent use.
type Advisor struct {
	source RuleSource
	now    func() time.Time
	logger *logrus.Logger
}

type Option func(*Advisor)

// WithClock overrides the clock used for Result.GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Advisor) { a.now = now }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(a *Advisor) { a.logger = logger }
}

func NewAdvisor(source RuleSource, opts ...Option) *Advisor {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	a := &Advisor{
		source: source,
		now:    time.Now,
		logger: discard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Triage produces exactly one result for a non-empty symptom set. The only
// error is ErrInvalidInput; anything else degrades to the default outcome.
func (a *Advisor) Triage(symptoms SymptomSet, tc Context) (Result, error) {
	if symptoms.Len() == 0 {
		return Result{}, fmt.Errorf("%w: at least one symptom is required", ErrInvalidInput)
	}

	table := a.source.Rules()
	base, match := a.match(table, symptoms)

	res := Result{
		Condition:   base.Condition,
		Risk:        base.Risk,
		Advice:      base.Advice,
		Urgency:     base.Urgency,
		Symptoms:    symptoms.Labels(),
		Duration:    tc.Duration,
		Severity:    tc.Severity,
		GeneratedAt: a.now(),
		Match:       match,
	}

	if reason, ok := escalationReason(table, symptoms, tc); ok {
		res.Risk = RiskHigh
		res.Urgency = EscalatedUrgency
		res.Escalated = true
		a.logger.WithFields(logrus.Fields{
			"condition": res.Condition,
			"reason":    reason,
		}).Debug("Escalated triage result")
	}

	a.logger.WithFields(logrus.Fields{
		"symptoms":  len(res.Symptoms),
		"match":     res.Match,
		"condition": res.Condition,
		"risk":      res.Risk,
	}).Debug("Completed triage")

	return res, nil
}

func (a *Advisor) match(table *RuleTable, symptoms SymptomSet) (ConditionRule, MatchKind) {
	if table != nil {
		if rule, ok := table.lookup(CanonicalKey(symptoms.labels)); ok {
			return rule, MatchExact
		}
		for _, rule := range table.rules {
			if partialMatches(rule, symptoms) >= MinPartialMatches {
				return rule, MatchPartial
			}
		}
	}
	return ConditionRule{
		Condition: DefaultCondition,
		Risk:      RiskMedium,
		Advice:    DefaultAdvice,
		Urgency:   DefaultUrgency,
	}, MatchDefault
}

// partialMatches counts the rule symptoms that appear, as substrings, in any
// caller label. "severe headache" matches rule symptom "headache"; a short
// rule symptom such as "ache" also matches "headache" and "backache".
func partialMatches(rule ConditionRule, symptoms SymptomSet) int {
	n := 0
	for _, s := range rule.Symptoms {
		if symptoms.containsFragment(s) {
			n++
		}
	}
	return n
}

func escalationReason(table *RuleTable, symptoms SymptomSet, tc Context) (string, bool) {
	if tc.Severity == SeveritySevere {
		return "severity", true
	}
	flags := DefaultRedFlags
	if table != nil {
		flags = table.redFlags
	}
	for _, flag := range flags {
		if symptoms.containsFragment(flag) {
			return "red flag: " + flag, true
		}
	}
	return "", false
}
