package email

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"go.uber.org/zap"
)

const providerSES = "ses"

// SESConfig holds configuration for AWS SES
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	From            Address
	Timeout         time.Duration
	// Endpoint overrides the regional SES endpoint; optional.
	Endpoint string
}

// SESSender sends emails via AWS SES v2
type SESSender struct {
	client  *sesv2.Client
	from    Address
	timeout time.Duration
}

var _ Sender = (*SESSender)(nil)

// NewSESSender creates an SES sender with static credentials
func NewSESSender(cfg SESConfig) (*SESSender, error) {
	if cfg.Region == "" {
		return nil, apperrors.MissingConfig("AWS_SES_REGION")
	}
	if cfg.AccessKeyID == "" {
		return nil, apperrors.MissingConfig("AWS_ACCESS_KEY_ID")
	}
	if cfg.SecretAccessKey == "" {
		return nil, apperrors.MissingConfig("AWS_SECRET_ACCESS_KEY")
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &SESSender{client: client, from: cfg.From, timeout: cfg.Timeout}, nil
}

// Send sends msg via SES
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	return observe(ctx, providerSES, s.timeout, msg, func(ctx context.Context) error {
		to := Address{Name: msg.ToName, Email: msg.To}

		body := &types.Body{}
		if msg.Text != "" {
			body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
		}
		if msg.HTML != "" {
			body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
		}

		input := &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(s.from.String()),
			Destination: &types.Destination{
				ToAddresses: []string{to.String()},
			},
			Content: &types.EmailContent{
				Simple: &types.Message{
					Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
					Body:    body,
				},
			},
		}

		output, err := s.client.SendEmail(ctx, input)
		if err != nil {
			return err
		}

		logger.Debug("SES accepted email", zap.String("message_id", aws.ToString(output.MessageId)))
		return nil
	})
}
