package email

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

// LogNotifier writes deliveries to the log instead of sending them. Used when
// no SendGrid key is configured, typically in local development.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) ports.Notifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Deliver(ctx context.Context, email, token string, purpose challenge.Purpose) error {
	if n.logger == nil {
		return nil
	}
	entry := n.logger.WithFields(logrus.Fields{"email": email, "purpose": purpose})
	// the code itself only shows up at debug level
	if n.logger.IsLevelEnabled(logrus.DebugLevel) {
		entry = entry.WithField("code", token)
	}
	entry.Info("email delivery skipped: no provider configured")
	return nil
}
