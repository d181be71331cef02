package triage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bareListRules = `
- symptoms: [Rash, Fever]
  condition: Measles
  risk: medium
  advice: Isolate and consult a doctor.
  urgency: Consult doctor
- symptoms: [joint pain, fever]
  condition: Chikungunya
  risk: medium
  advice: Rest and hydrate.
  urgency: Consult doctor
`

const jsonRules = `{
  "red_flags": ["seizure"],
  "rules": [
    {"symptoms": ["cough", "fever"], "condition": "Flu", "risk": "low", "advice": "Rest.", "urgency": "Home care"}
  ]
}`

func TestParseRules_BareList(t *testing.T) {
	table, err := ParseRules([]byte(bareListRules))
	require.NoError(t, err)

	rules := table.All()
	require.Len(t, rules, 2)
	assert.Equal(t, "Measles", rules[0].Condition)
	assert.Equal(t, "fever,rash", rules[0].Key)
	assert.Equal(t, "Chikungunya", rules[1].Condition)
	assert.Equal(t, DefaultRedFlags, table.RedFlags())
}

func TestParseRules_JSON(t *testing.T) {
	table, err := LoadRules(strings.NewReader(jsonRules))
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"chest pain", "difficulty breathing", "seizure"}, table.RedFlags())
}

func TestParseRules_CustomRedFlagsKeepDefaults(t *testing.T) {
	table, err := ParseRules([]byte(`red_flags: [unconscious]
rules:
  - symptoms: [chest pain, difficulty breathing]
    condition: Chest infection
    risk: medium
    urgency: Schedule appointment soon
`))
	require.NoError(t, err)
	advisor := NewAdvisor(table)

	res, err := advisor.Triage(NewSymptomSet("chest pain", "difficulty breathing"), Context{})
	require.NoError(t, err)
	assert.Equal(t, "Chest infection", res.Condition)
	assert.Equal(t, RiskHigh, res.Risk)
	assert.Equal(t, EscalatedUrgency, res.Urgency)
	assert.True(t, res.Escalated)

	res, err = advisor.Triage(NewSymptomSet("Unconscious"), Context{})
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, res.Risk)
}

func TestParseRules_EmptyRedFlagsKeepDefaults(t *testing.T) {
	table, err := ParseRules([]byte("red_flags: []\nrules:\n  - {symptoms: [fever, rash], condition: Measles, risk: medium}\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRedFlags, table.RedFlags())
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{name: "empty document", input: "", invalid: true},
		{name: "scalar document", input: "just text", invalid: true},
		{name: "mapping without rules", input: "red_flags: [chest pain]", invalid: true},
		{name: "bad risk", input: "- {symptoms: [a], condition: A, risk: extreme}", invalid: true},
		{name: "malformed yaml", input: "rules: [", invalid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.input))
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidRule))
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bareListRules), 0o644))

	table, err := LoadRulesFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestReloader(t *testing.T) {
	logger, hook := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bareListRules), 0o644))

	r, err := NewReloader(path, logger)
	require.NoError(t, err)
	first := r.Rules()
	assert.Equal(t, 2, first.Len())

	require.NoError(t, os.WriteFile(path, []byte(jsonRules), 0o644))
	require.NoError(t, r.Reload())
	assert.Equal(t, 1, r.Rules().Len())
	assert.Equal(t, 2, first.Len(), "previous snapshot is untouched")

	require.NoError(t, os.WriteFile(path, []byte("rules: ["), 0o644))
	require.Error(t, r.Reload())
	assert.Equal(t, 1, r.Rules().Len(), "failed reload keeps the current table")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestReloader_Embedded(t *testing.T) {
	logger, _ := test.NewNullLogger()

	r, err := NewReloader("", logger)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Rules().Len())

	advisor := NewAdvisor(r)
	res, err := advisor.Triage(NewSymptomSet("cough", "sore throat", "fever"), Context{})
	require.NoError(t, err)
	assert.Equal(t, "Upper Respiratory Infection", res.Condition)
}

func TestNewReloader_BadFile(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, err := NewReloader(filepath.Join(t.TempDir(), "missing.yaml"), logger)
	require.Error(t, err)
}
