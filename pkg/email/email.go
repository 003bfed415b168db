package email

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kardan-dev/kardan-api/config"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/kardan-dev/kardan-api/pkg/metrics"
	"github.com/kardan-dev/kardan-api/pkg/tracing"
	"go.uber.org/zap"
)

// Sender delivers one email. Implementations can be swapped without changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is an email to be sent
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string // plain-text body
	HTML    string // optional HTML alternative
	// Kind labels the message in metrics and logs, e.g. "confirmation"
	Kind string
}

// Address is a parsed sender identity
type Address struct {
	Name  string
	Email string
}

// ParseAddress accepts "Name <addr@host>" or a bare address
func ParseAddress(s string) (Address, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid email address %q: %w", s, apperrors.ErrConfiguration)
	}
	return Address{Name: addr.Name, Email: addr.Address}, nil
}

func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// NewSender builds the sender selected by cfg.Provider
func NewSender(cfg config.EmailConfig) (Sender, error) {
	from, err := ParseAddress(cfg.From)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second

	switch cfg.Provider {
	case config.EmailProviderSendGrid:
		return NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, From: from, Timeout: timeout})
	case config.EmailProviderSES:
		return NewSESSender(SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
			From:            from,
			Timeout:         timeout,
		})
	case config.EmailProviderLog:
		return NewLogSender(from), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q: %w", cfg.Provider, apperrors.ErrConfiguration)
	}
}

// observe runs one provider call with a deadline, a span, metrics and a log line.
// Provider failures come back as ExternalServiceError with the notification code.
func observe(ctx context.Context, provider string, timeout time.Duration, msg Message, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := tracing.StartClientSpan(ctx, provider, "send")

	err := fn(ctx)

	duration := metrics.MeasureDuration(start)
	status := metrics.StatusLabel(err)
	metrics.EmailSendDuration.WithLabelValues(provider, status).Observe(duration)
	metrics.EmailSendTotal.WithLabelValues(provider, kindLabel(msg.Kind), status).Inc()
	tracing.End(span, err)

	if err != nil {
		logger.Error("Email send failed",
			zap.String("provider", provider),
			zap.String("kind", msg.Kind),
			zap.String("to", msg.To),
			zap.Error(err))
		return apperrors.ExternalService(provider, "send", apperrors.CodeNotificationFailed, err)
	}

	logger.LogAPICall(provider, "send", status, duration,
		zap.String("kind", msg.Kind),
		zap.String("subject", msg.Subject))
	return nil
}

func kindLabel(kind string) string {
	if kind == "" {
		return "other"
	}
	return kind
}
