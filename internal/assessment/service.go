package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"nabha-triage/internal/platform/metrics"
	"nabha-triage/internal/triage"
)

// History page sizes for ListByPatient.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Advisor defines the triage engine the service delegates to.
type Advisor interface {
	Triage(symptoms triage.SymptomSet, tc triage.Context) (triage.Result, error)
}

// Notifier delivers high risk assessments to a doctor.
type Notifier interface {
	SendHighRiskAlert(ctx context.Context, a Assessment) error
}

// RuleReloader replaces the advisor's rule table at runtime.
type RuleReloader interface {
	Reload() error
	Rules() *triage.RuleTable
}

type Service interface {
	Assess(ctx context.Context, req Request) (*Assessment, error)
	Get(ctx context.Context, id uuid.UUID) (*Assessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error)
	Catalog() Catalog
	ReloadRules(ctx context.Context) (int, error)
	WaitForAlerts(ctx context.Context) error
}

type service struct {
	repo     Repository
	advisor  Advisor
	notifier Notifier
	rules    RuleReloader
	logger   *logrus.Logger
	alerts   sync.WaitGroup
}

// NewService wires the assessment service. notifier and rules may be nil.
func NewService(repo Repository, advisor Advisor, notifier Notifier, rules RuleReloader, logger *logrus.Logger) Service {
	return &service{
		repo:     repo,
		advisor:  advisor,
		notifier: notifier,
		rules:    rules,
		logger:   logger,
	}
}

func (s *service) Assess(ctx context.Context, req Request) (*Assessment, error) {
	severity, ok := triage.ParseSeverity(req.Severity)
	if !ok {
		s.logger.WithField("severity", req.Severity).Warn("Ignoring unrecognized severity")
		metrics.RecordInvalidSeverity()
	}

	// Patient id is optional; anonymous checks are stored without one.
	var patientID uuid.NullUUID
	if req.PatientID != "" {
		pid, err := uuid.Parse(req.PatientID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed patient id", triage.ErrInvalidInput)
		}
		if pid == uuid.Nil {
			return nil, fmt.Errorf("%w: nil patient id", triage.ErrInvalidInput)
		}
		patientID = uuid.NullUUID{UUID: pid, Valid: true}
	}

	result, err := s.advisor.Triage(triage.NewSymptomSet(req.Symptoms...), triage.Context{
		Duration: req.Duration,
		Severity: severity,
	})
	if err != nil {
		return nil, err
	}

	a := &Assessment{
		ID:        uuid.New(),
		PatientID: patientID,
		Result:    result,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}

	metrics.RecordAssessment(string(result.Risk), string(result.Match), result.Escalated)
	s.logger.WithFields(logrus.Fields{
		"assessment_id": a.ID,
		"condition":     result.Condition,
		"risk":          result.Risk,
		"match":         result.Match,
		"escalated":     result.Escalated,
	}).Info("Recorded assessment")

	if a.HighRisk() && s.notifier != nil {
		s.alerts.Add(1)
		go func(a Assessment) {
			defer s.alerts.Done()
			s.alert(a)
		}(*a)
	}

	return a, nil
}

// alert runs detached from the request so a slow notifier never delays the
// patient's result.
func (s *service) alert(a Assessment) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.notifier.SendHighRiskAlert(ctx, a)
	metrics.RecordAlert(err)
	if err != nil {
		s.logger.WithError(err).WithField("assessment_id", a.ID).Error("Failed to send doctor alert")
		return
	}
	s.logger.WithField("assessment_id", a.ID).Info("Doctor alert sent")
}

// WaitForAlerts blocks until in-flight doctor alerts finish or ctx ends.
func (s *service) WaitForAlerts(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.alerts.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: nil patient id", triage.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *service) Catalog() Catalog {
	c := defaultCatalog
	c.CommonSymptoms = append([]string(nil), c.CommonSymptoms...)
	c.Durations = append([]string(nil), c.Durations...)
	c.Severities = append([]triage.Severity(nil), c.Severities...)
	return c
}

func (s *service) ReloadRules(_ context.Context) (int, error) {
	if s.rules == nil {
		return 0, fmt.Errorf("rule reloading is not configured")
	}
	err := s.rules.Reload()
	metrics.RecordRuleReload(err)
	if err != nil {
		return 0, err
	}
	return s.rules.Rules().Len(), nil
}
