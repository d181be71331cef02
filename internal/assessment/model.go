package assessment

import (
	"time"

	"github.com/google/uuid"

	"nabha-triage/internal/triage"
)

// Assessment is one recorded run of the symptom checker. PatientID is
// invalid for anonymous checks.
type Assessment struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	PatientID uuid.NullUUID `json:"patientId" db:"patient_id"`
	Result    triage.Result `json:"result" db:"result"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
}

func (a Assessment) Anonymous() bool {
	return !a.PatientID.Valid
}

// HighRisk reports whether the consumer should show the emergency warning.
func (a Assessment) HighRisk() bool {
	return a.Result.Risk == triage.RiskHigh
}

// Request is the raw symptom checker input, as entered in the app.
type Request struct {
	PatientID string   `json:"patientId"`
	Symptoms  []string `json:"symptoms"`
	Duration  string   `json:"duration"`
	Severity  string   `json:"severity"`
}

// Catalog lists the choices offered by the symptom picker.
type Catalog struct {
	CommonSymptoms []string          `json:"commonSymptoms"`
	Durations      []string          `json:"durations"`
	Severities     []triage.Severity `json:"severities"`
	Disclaimer     string            `json:"disclaimer"`
}

var defaultCatalog = Catalog{
	CommonSymptoms: []string{
		"Fever", "Headache", "Cough", "Sore throat", "Body ache", "Fatigue",
		"Nausea", "Vomiting", "Diarrhea", "Stomach pain", "Chest pain",
		"Difficulty breathing", "Dizziness", "Rash", "Joint pain",
	},
	Durations:  []string{"few hours", "1 day", "2-3 days", "1 week", "more than week"},
	Severities: []triage.Severity{triage.SeverityMild, triage.SeverityModerate, triage.SeveritySevere},
	Disclaimer: "This symptom checker is for informational purposes only and does not replace professional medical advice. " +
		"Always consult qualified healthcare providers for diagnosis and treatment.",
}
