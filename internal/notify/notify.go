// Package notify delivers voided-reservation notices produced by the
// reconciliation sweep.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/room-reservation/internal/application"
)

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs through logger, or slog.Default
// when logger is nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// NotifyVoided logs the notice at info level.
func (n *LogNotifier) NotifyVoided(ctx context.Context, notice application.VoidedNotice) error {
	n.logger.InfoContext(ctx, "reservations voided",
		"member_id", notice.MemberID,
		"slots", notice.Slots,
		"at", notice.At,
	)
	return nil
}

// Multi fans a notice out to several notifiers. Every notifier is tried and
// the failures are joined.
type Multi []application.Notifier

// NotifyVoided implements application.Notifier.
func (m Multi) NotifyVoided(ctx context.Context, notice application.VoidedNotice) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyVoided(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
