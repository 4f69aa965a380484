package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/serviq/booking-engine/internal/booking"
)

// LogNotifier is the development sink: it records what would have been sent.
// Production deployments swap in a push/email implementation behind the same
// booking.Notifier interface.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, recipientID uuid.UUID, kind booking.NotificationKind, appt *booking.Appointment) {
	n.logger.Info("notification",
		"recipient_id", recipientID,
		"template", string(kind),
		"appointment_id", appt.ID,
		"status", string(appt.Status),
	)
}
