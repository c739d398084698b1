package ports

import (
	"context"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
)

// Notifier delivers a code (or a welcome message) out of band.
type Notifier interface {
	Deliver(ctx context.Context, email, token string, purpose challenge.Purpose) error
}

// Notification is one queued delivery.
type Notification struct {
	ID      string
	Email   string
	Token   string
	Purpose challenge.Purpose
}

// NotificationQueue hands deliveries to background workers. Enqueue never blocks
// and reports false when the message was dropped.
type NotificationQueue interface {
	Enqueue(n Notification) bool
}
