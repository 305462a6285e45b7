package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// LogNotifier writes notifications to the log instead of delivering them.
// Used when no notification service is configured, typically in local
// development.
type LogNotifier struct {
	logger *slog.Logger
	seq    atomic.Int64
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "log_notifier")}
}

func (n *LogNotifier) SendEmail(_ context.Context, to, subject, htmlBody string) (Result, error) {
	id := fmt.Sprintf("log-%d", n.seq.Add(1))

	n.logger.Info("Email notification (not delivered)",
		"to", to,
		"subject", subject,
		"body_length", len(htmlBody),
		"message_id", id,
	)

	return Result{Success: true, MessageID: id}, nil
}
