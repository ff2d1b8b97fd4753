package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier stands in for SMTP when no relay is configured. It records
// that a message was dropped; the body carries a reset token and is never
// logged.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, _ string) error {
	n.log.Warn().Str("to", to).Str("subject", subject).Msg("smtp not configured, email dropped")
	return nil
}
