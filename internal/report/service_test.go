package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nabha-triage/internal/assessment"
	"nabha-triage/internal/triage"
)

type fakeTelegram struct {
	mu        sync.Mutex
	messages  []string
	documents []string
	err       error
}

func (f *fakeTelegram) SendMessage(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeTelegram) SendDocument(_ context.Context, _ int64, _ []byte, fileName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.documents = append(f.documents, fileName)
	return nil
}

func highRiskAssessment() assessment.Assessment {
	return assessment.Assessment{
		ID:        uuid.New(),
		PatientID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Result: triage.Result{
			Condition:   "Requires Immediate Medical Attention",
			Risk:        triage.RiskHigh,
			Advice:      "Seek immediate medical care.",
			Urgency:     triage.EscalatedUrgency,
			Symptoms:    []string{"chest pain", "difficulty breathing"},
			Duration:    "few hours",
			Severity:    triage.SeveritySevere,
			GeneratedAt: time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC),
			Escalated:   true,
		},
	}
}

func newTestService(tg TelegramClient, chatID int64) *Service {
	logger, _ := test.NewNullLogger()
	return NewService(tg, Config{
		DoctorChatID:  chatID,
		FontPaths:     []string{"/nonexistent/font.ttf"},
		RatePerSecond: 1000,
	}, logger)
}

func TestFormatAlert(t *testing.T) {
	a := highRiskAssessment()

	msg := FormatAlert(a)
	assert.Contains(t, msg, "HIGH RISK")
	assert.Contains(t, msg, a.ID.String())
	assert.Contains(t, msg, "Patient: "+a.PatientID.UUID.String())
	assert.Contains(t, msg, "Symptoms: chest pain, difficulty breathing")
	assert.Contains(t, msg, "Next steps: "+triage.EscalatedUrgency)
	assert.Contains(t, msg, "Generated: 01.05.2026 08:15")

	a.PatientID = uuid.NullUUID{}
	a.Result.Duration = ""
	msg = FormatAlert(a)
	assert.NotContains(t, msg, "Patient:")
	assert.Contains(t, msg, "Duration: -")
}

func TestService_SendHighRiskAlert(t *testing.T) {
	tg := &fakeTelegram{}
	svc := newTestService(tg, 99)

	require.NoError(t, svc.SendHighRiskAlert(context.Background(), highRiskAssessment()))
	assert.Len(t, tg.messages, 1)
	assert.Empty(t, tg.documents, "no font available, PDF is skipped")
}

func TestService_SkipsWithoutDoctorChat(t *testing.T) {
	tg := &fakeTelegram{}
	svc := newTestService(tg, 0)

	require.NoError(t, svc.SendHighRiskAlert(context.Background(), highRiskAssessment()))
	assert.Empty(t, tg.messages)
}

func TestService_CircuitBreakerOpens(t *testing.T) {
	tg := &fakeTelegram{err: errors.New("bot api down")}
	svc := newTestService(tg, 99)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := svc.SendHighRiskAlert(ctx, highRiskAssessment())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bot api down")
	}

	err := svc.SendHighRiskAlert(ctx, highRiskAssessment())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestService_RespectsContextCancellation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewService(&fakeTelegram{}, Config{DoctorChatID: 1, RatePerSecond: 0.001}, logger)

	// The first call consumes the burst token.
	require.NoError(t, svc.send(context.Background(), func() error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, svc.send(ctx, func() error { return nil }))
}

type fakeSplitter struct {
	err error
}

func (f fakeSplitter) SplitText(text string, _ float64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return strings.Fields(text), nil
}

func TestWrapText(t *testing.T) {
	lines, err := wrapText(fakeSplitter{}, "Stay hydrated", 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stay", "hydrated"}, lines)

	lines, err = wrapText(fakeSplitter{err: errors.New("should not be called")}, "  ", 500)
	require.NoError(t, err)
	assert.Empty(t, lines)

	glyphErr := errors.New("char not found")
	_, err = wrapText(fakeSplitter{err: glyphErr}, "Stay hydrated", 500)
	assert.ErrorIs(t, err, glyphErr)
}
