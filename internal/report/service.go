package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signintech/gopdf"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"nabha-triage/internal/assessment"
	"nabha-triage/internal/triage"
)

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

// DefaultFontPaths are tried in order; the first font that loads is used.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

var errNoFont = errors.New("no usable TTF font found")

type Config struct {
	DoctorChatID  int64
	FontPaths     []string
	RatePerSecond float64
}

// Service sends high risk assessments to the on-call doctor's chat as a
// short message plus a PDF summary.
type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
	fontPaths    []string
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	logger       *logrus.Logger
}

func NewService(tg TelegramClient, cfg Config, logger *logrus.Logger) *Service {
	if len(cfg.FontPaths) == 0 {
		cfg.FontPaths = DefaultFontPaths
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Service{
		tgClient:     tg,
		doctorChatID: cfg.DoctorChatID,
		fontPaths:    cfg.FontPaths,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		breaker:      breaker,
		logger:       logger,
	}
}

func (s *Service) SendHighRiskAlert(ctx context.Context, a assessment.Assessment) error {
	if s.doctorChatID == 0 {
		s.logger.WithField("assessment_id", a.ID).Warn("Doctor chat is not configured, skipping alert")
		return nil
	}

	if err := s.send(ctx, func() error {
		return s.tgClient.SendMessage(ctx, s.doctorChatID, FormatAlert(a))
	}); err != nil {
		return fmt.Errorf("send alert message: %w", err)
	}

	pdf, err := s.renderPDF(a)
	if err != nil {
		s.logger.WithError(err).WithField("assessment_id", a.ID).Warn("Skipping PDF summary")
		return nil
	}

	fileName := fmt.Sprintf("triage_%s.pdf", a.ID)
	if err := s.send(ctx, func() error {
		return s.tgClient.SendDocument(ctx, s.doctorChatID, pdf, fileName)
	}); err != nil {
		return fmt.Errorf("send alert document: %w", err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, call func() error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, call()
	})
	return err
}

// FormatAlert renders the plain-text alert message.
func FormatAlert(a assessment.Assessment) string {
	r := a.Result
	var b strings.Builder
	fmt.Fprintf(&b, "HIGH RISK triage result\n")
	fmt.Fprintf(&b, "Assessment: %s\n", a.ID)
	if !a.Anonymous() {
		fmt.Fprintf(&b, "Patient: %s\n", a.PatientID.UUID)
	}
	fmt.Fprintf(&b, "Condition: %s\n", r.Condition)
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(r.Symptoms, ", "))
	fmt.Fprintf(&b, "Duration: %s\n", orDash(r.Duration))
	fmt.Fprintf(&b, "Severity: %s\n", orDash(string(r.Severity)))
	fmt.Fprintf(&b, "Next steps: %s\n", r.Urgency)
	fmt.Fprintf(&b, "Generated: %s", r.GeneratedAt.Format("02.01.2006 15:04"))
	return b.String()
}

func patientLabel(a assessment.Assessment) string {
	if a.Anonymous() {
		return "anonymous"
	}
	return a.PatientID.UUID.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (s *Service) renderPDF(a assessment.Assessment) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("%w: %v", errNoFont, fontErr)
	}

	r := a.Result
	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Symptom Triage Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	lines := []string{
		fmt.Sprintf("Date: %s", r.GeneratedAt.Format("02.01.2006 15:04")),
		fmt.Sprintf("Assessment ID: %s", a.ID),
		fmt.Sprintf("Patient ID: %s", patientLabel(a)),
		fmt.Sprintf("Risk: %s", riskLabel(r.Risk)),
		fmt.Sprintf("Possible condition: %s", r.Condition),
		fmt.Sprintf("Symptoms: %s", strings.Join(r.Symptoms, ", ")),
		fmt.Sprintf("Duration: %s | Severity: %s", orDash(r.Duration), orDash(string(r.Severity))),
	}
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(15)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Recommendation:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, text := range []string{r.Advice, "Next steps: " + r.Urgency} {
		wrapped, err := wrapText(&pdf, text, 500)
		if err != nil {
			return nil, err
		}
		for _, l := range wrapped {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
		pdf.Br(5)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type textSplitter interface {
	SplitText(text string, width float64) ([]string, error)
}

// wrapText splits text into lines no wider than width. Blank text yields no
// lines.
func wrapText(sp textSplitter, text string, width float64) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines, err := sp.SplitText(text, width)
	if err != nil {
		return nil, fmt.Errorf("wrap %q: %w", text, err)
	}
	return lines, nil
}

func riskLabel(r triage.Risk) string {
	switch r {
	case triage.RiskHigh:
		return "HIGH - immediate attention"
	case triage.RiskMedium:
		return "Medium"
	case triage.RiskLow:
		return "Low"
	default:
		return string(r)
	}
}
