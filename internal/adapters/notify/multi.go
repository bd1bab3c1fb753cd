package notify

import (
	"context"
	"errors"
	"log/slog"

	"delivery-ops-service/internal/ports"
)

// Multi sends every notification through all channels. It only fails when
// every channel failed.
type Multi []ports.Notifier

func (m Multi) Notify(ctx context.Context, phone string, kind ports.TemplateKind, params map[string]string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, phone, kind, params); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m) {
		return errors.Join(errs...)
	}
	return nil
}

// Log records notifications instead of sending them. Used when no channel is
// configured.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(ctx context.Context, phone string, kind ports.TemplateKind, params map[string]string) error {
	text, err := Render(kind, params)
	if err != nil {
		return err
	}
	l.log.InfoContext(ctx, "notification (not sent)", "phone", phone, "kind", kind, "text", text)
	return nil
}
