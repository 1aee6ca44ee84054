package sms

import (
	"context"
	"log/slog"
)

// Gateway abstracts the SMS delivery provider. Dispatch is best-effort:
// callers log failures and carry on, no delivery confirmation exists.
type Gateway interface {
	Send(ctx context.Context, number, text string) error
}

// LogGateway is a development gateway that writes messages to the log
// instead of dispatching them. Swap in a real provider implementation in
// production without touching callers.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway creates a log-backed SMS gateway.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send logs the message. The text is not logged verbatim because it may
// contain a one-time code; only its length is recorded.
func (g *LogGateway) Send(ctx context.Context, number, text string) error {
	g.logger.InfoContext(ctx, "sms dispatched",
		slog.String("number", number),
		slog.Int("text_length", len(text)),
	)
	return nil
}
