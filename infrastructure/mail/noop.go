package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender implements ports.MailSink by logging the message instead of
// sending it. Used when no recipient is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, subject, body string) error {
	s.logger.Info("notification email suppressed, no recipient configured",
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
