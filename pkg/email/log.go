package email

import (
	"context"

	"github.com/kardan-dev/kardan-api/pkg/logger"
	"go.uber.org/zap"
)

const providerLog = "log"

// LogSender logs emails instead of sending them (development)
type LogSender struct {
	from Address
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(from Address) *LogSender {
	return &LogSender{from: from}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	return observe(ctx, providerLog, 0, msg, func(context.Context) error {
		logger.Info("Email not sent (log provider)",
			zap.String("from", s.from.String()),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("text_bytes", len(msg.Text)),
			zap.Int("html_bytes", len(msg.HTML)))
		return nil
	})
}
