package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ContactNotifier reaches a device's personal emergency contacts (SMS, calls).
type ContactNotifier interface {
	NotifyContacts(ctx context.Context, deviceID string, contacts []string, message string) error
}

// LogContactNotifier only logs; no SMS gateway is configured.
type LogContactNotifier struct {
	log *logrus.Logger
}

func NewLogContactNotifier(l *logrus.Logger) *LogContactNotifier {
	if l == nil {
		l = logrus.New()
	}
	return &LogContactNotifier{log: l}
}

func (n *LogContactNotifier) NotifyContacts(_ context.Context, deviceID string, contacts []string, message string) error {
	n.log.WithFields(logrus.Fields{
		"device_id": deviceID,
		"contacts":  contacts,
	}).Info("emergency contacts notified: " + message)
	return nil
}
