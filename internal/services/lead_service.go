package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kardan-dev/kardan-api/internal/models"
	"github.com/kardan-dev/kardan-api/internal/repository"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/kardan-dev/kardan-api/pkg/metrics"
	"github.com/kardan-dev/kardan-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LeadService runs one submission through validation, the sheet log and both emails
type LeadService struct {
	validator *LeadValidator
	leadLog   repository.LeadLogDataSource
	notifier  LeadNotifierService
	captcha   CaptchaVerifier
	now       func() time.Time
	newID     func() string
}

var _ LeadServiceInterface = (*LeadService)(nil)

// NewLeadService creates a new lead service. captcha may be nil.
func NewLeadService(
	leadLog repository.LeadLogDataSource,
	notifier LeadNotifierService,
	captcha CaptchaVerifier,
) *LeadService {
	return &LeadService{
		validator: NewLeadValidator(),
		leadLog:   leadLog,
		notifier:  notifier,
		captcha:   captcha,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// SubmitLead validates sub, appends it to the lead log and then sends both
// notifications concurrently. Nothing is sent if the log write fails.
func (s *LeadService) SubmitLead(ctx context.Context, sub *models.LeadSubmission) (models.LeadRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "lead.submit")
	var err error
	defer func() { tracing.End(span, err) }()

	if err = s.verifyCaptcha(ctx, sub); err != nil {
		metrics.LeadSubmissions.WithLabelValues("captcha_failed").Inc()
		return models.LeadRecord{}, err
	}

	record, err := s.validator.Validate(sub)
	if err != nil {
		metrics.LeadSubmissions.WithLabelValues("invalid").Inc()
		logger.Debug("Lead rejected by validation", zap.Error(err))
		return models.LeadRecord{}, err
	}

	record = record.
		WithSubmittedAt(s.now().UTC()).
		WithReference(s.newID())
	span.SetAttributes(attribute.String("lead.reference", record.Reference()))

	if err = s.leadLog.Append(ctx, record); err != nil {
		metrics.LeadSubmissions.WithLabelValues("log_failed").Inc()
		logger.Error("Failed to log lead",
			zap.String("reference", record.Reference()),
			zap.Error(err))
		return models.LeadRecord{}, err
	}

	if err = s.notify(ctx, record); err != nil {
		metrics.LeadSubmissions.WithLabelValues("notify_failed").Inc()
		logger.Error("Failed to send lead notifications",
			zap.String("reference", record.Reference()),
			zap.Error(err))
		return models.LeadRecord{}, err
	}

	metrics.LeadSubmissions.WithLabelValues("success").Inc()
	logger.Info("Lead captured",
		zap.String("reference", record.Reference()),
		zap.String("service_type", record.ServiceType()),
		zap.String("industry", record.Industry()))

	return record, nil
}

// notify sends both emails and waits for both. A failed send does not cancel the other.
func (s *LeadService) notify(ctx context.Context, record models.LeadRecord) error {
	var g errgroup.Group
	g.Go(func() error { return s.notifier.NotifyConfirmation(ctx, record) })
	g.Go(func() error { return s.notifier.NotifyInternal(ctx, record) })

	err := g.Wait()
	if err == nil || apperrors.CodeOf(err) == apperrors.CodeNotificationFailed {
		return err
	}
	return apperrors.ExternalService("email", "notify", apperrors.CodeNotificationFailed, err)
}

func (s *LeadService) verifyCaptcha(ctx context.Context, sub *models.LeadSubmission) error {
	if s.captcha == nil || !s.captcha.Enabled() {
		return nil
	}

	var token, remoteIP string
	if sub != nil {
		token = trimmed(sub.RecaptchaToken)
		remoteIP = sub.RemoteIP
	}

	if err := s.captcha.Verify(ctx, token, remoteIP); err != nil {
		logger.Warn("ReCAPTCHA verification failed", zap.Error(err))
		return &apperrors.ValidationError{Violations: []apperrors.FieldViolation{{
			Field:   "recaptchaToken",
			Message: "Captcha verification failed",
		}}}
	}
	return nil
}
