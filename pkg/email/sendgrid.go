package email

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	providerSendGrid = "sendgrid"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridConfig holds configuration for SendGrid
type SendGridConfig struct {
	APIKey  string
	From    Address
	Timeout time.Duration
	// Host overrides https://api.sendgrid.com; optional.
	Host string
}

// SendGridSender sends emails via the SendGrid v3 API
type SendGridSender struct {
	apiKey  string
	host    string
	from    Address
	timeout time.Duration
}

var _ Sender = (*SendGridSender)(nil)

// NewSendGridSender creates a SendGrid sender. The API key is required.
func NewSendGridSender(cfg SendGridConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.MissingConfig("SENDGRID_API_KEY")
	}
	return &SendGridSender{
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		from:    cfg.From,
		timeout: cfg.Timeout,
	}, nil
}

// Send sends msg via SendGrid. A non-2xx status is an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	return observe(ctx, providerSendGrid, s.timeout, msg, func(ctx context.Context) error {
		from := mail.NewEmail(s.from.Name, s.from.Email)
		to := mail.NewEmail(msg.ToName, msg.To)

		// text-only messages carry no text/html part
		message := mail.NewV3MailInit(from, msg.Subject, to, mail.NewContent("text/plain", msg.Text))
		if msg.HTML != "" {
			message.AddContent(mail.NewContent("text/html", msg.HTML))
		}

		// a fresh request per send: sendgrid.Client keeps the body on the shared request
		request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
		request.Method = http.MethodPost
		request.Body = mail.GetRequestBody(message)

		response, err := sendgrid.MakeRequestWithContext(ctx, request)
		if err != nil {
			return fmt.Errorf("sendgrid request failed: %w", err)
		}
		if response.StatusCode >= 300 {
			return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
		}
		return nil
	})
}
