package notify

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/sessionauth"
)

// Log writes messages to a logger instead of delivering them. Verification
// links show up in the development server's output.
type Log struct {
	logger *slog.Logger
}

var _ sessionauth.Notifier = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, msg sessionauth.Message) error {
	attrs := []any{
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
	}
	if link, ok := msg.Data["verificationUrl"].(string); ok {
		attrs = append(attrs, slog.String("verification_url", link))
	}
	l.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
