package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nabha-triage/internal/triage"
)

var ErrNotFound = errors.New("assessment not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error)
	Save(ctx context.Context, a *Assessment) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const selectColumns = `SELECT id, patient_id, condition, risk, advice, urgency, symptoms, duration, severity, match_kind, escalated, generated_at, created_at FROM triage_assessments`

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)

	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Save(ctx context.Context, a *Assessment) error {
	symptomsJSON, err := json.Marshal(a.Result.Symptoms)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO triage_assessments (id, patient_id, condition, risk, advice, urgency, symptoms, duration, severity, match_kind, escalated, generated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	res := a.Result
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.PatientID, res.Condition, string(res.Risk), res.Advice, res.Urgency, symptomsJSON,
		res.Duration, string(res.Severity), string(res.Match), res.Escalated, res.GeneratedAt, a.CreatedAt)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(s scanner) (*Assessment, error) {
	var (
		a            Assessment
		symptomsJSON []byte
		risk         string
		severity     string
		match        string
	)
	err := s.Scan(
		&a.ID,
		&a.PatientID,
		&a.Result.Condition,
		&risk,
		&a.Result.Advice,
		&a.Result.Urgency,
		&symptomsJSON,
		&a.Result.Duration,
		&severity,
		&match,
		&a.Result.Escalated,
		&a.Result.GeneratedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Result.Risk = triage.Risk(risk)
	a.Result.Severity = triage.Severity(severity)
	a.Result.Match = triage.MatchKind(match)

	if len(symptomsJSON) > 0 {
		if err := json.Unmarshal(symptomsJSON, &a.Result.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal symptoms: %w", err)
		}
	}
	return &a, nil
}

// memoryRepo keeps assessments in process memory. Used when no database
// is configured or reachable.
type memoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Assessment
}

func NewMemoryRepository() Repository {
	return &memoryRepo{items: make(map[uuid.UUID]Assessment)}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *memoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Assessment
	for _, a := range r.items {
		if a.PatientID.Valid && a.PatientID.UUID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) Save(_ context.Context, a *Assessment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = *a
	return nil
}
