package services

import (
	"context"

	"github.com/kardan-dev/kardan-api/internal/models"
)

// LeadServiceInterface defines the interface for lead intake operations
type LeadServiceInterface interface {
	SubmitLead(ctx context.Context, sub *models.LeadSubmission) (models.LeadRecord, error)
}

// LeadNotifierService defines the two emails sent for every logged lead
type LeadNotifierService interface {
	NotifyConfirmation(ctx context.Context, record models.LeadRecord) error
	NotifyInternal(ctx context.Context, record models.LeadRecord) error
}

// CaptchaVerifier checks a reCAPTCHA token. A disabled verifier is skipped.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}
