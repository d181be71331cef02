package triage

import "errors"

var (
	// ErrInvalidInput is returned by Triage for an empty symptom set.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidRule is returned when a rule table fails validation.
	ErrInvalidRule = errors.New("invalid rule")
)
