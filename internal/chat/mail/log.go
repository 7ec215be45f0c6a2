package mail

import (
	"context"
	"log/slog"
)

// LogSender writes codes to the log instead of sending email. Used in dev
// when no SMTP host is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendCode(_ context.Context, to, code string) error {
	s.Logger.Info("verification code (dev delivery)", "to", to, "code", code)
	return nil
}
