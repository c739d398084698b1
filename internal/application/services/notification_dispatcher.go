package services

import (
	"context"
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// NotificationDispatcherConfig controls queue depth and delivery concurrency.
type NotificationDispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// NotificationDispatcher delivers notifications on background workers so a
// slow or failing notifier never holds up a committed state transition.
type NotificationDispatcher struct {
	notifier  ports.Notifier
	ch        chan ports.Notification
	done      chan struct{}
	wg        sync.WaitGroup
	timeout   time.Duration
	logger    *logrus.Logger

	// mu orders sends against Close: once Close holds it, no send is in flight
	// and every accepted message is already buffered for the draining workers.
	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

func NewNotificationDispatcher(notifier ports.Notifier, cfg *NotificationDispatcherConfig, logger *logrus.Logger) *NotificationDispatcher {
	workers := 4
	size := 256
	timeout := 10 * time.Second
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.QueueSize > 0 {
			size = cfg.QueueSize
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}

	d := &NotificationDispatcher{
		notifier: notifier,
		ch:       make(chan ports.Notification, size),
		done:     make(chan struct{}),
		timeout:  timeout,
		logger:   logger,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d
}

// Enqueue never blocks. It returns false when the queue is full or closed.
func (d *NotificationDispatcher) Enqueue(n ports.Notification) bool {
	if d == nil {
		return false
	}
	if n.ID == "" {
		n.ID = ulid.MustNew(ulid.Now(), rand.Reader).String()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.ch <- n:
		return true
	default:
		d.dropped.Add(1)
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{
				"notification_id": n.ID,
				"email":           n.Email,
				"purpose":         n.Purpose,
			}).Warn("notification queue full, dropping message")
		}
		return false
	}
}

func (d *NotificationDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ch:
			d.deliver(n)
		case <-d.done:
			for {
				select {
				case n := <-d.ch:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) deliver(n ports.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Deliver(ctx, n.Email, n.Token, n.Purpose); err != nil {
		d.failed.Add(1)
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{
				"notification_id": n.ID,
				"email":           n.Email,
				"purpose":         n.Purpose,
			}).WithError(err).Error("failed to deliver notification")
		}
		return
	}
	d.delivered.Add(1)
}

// Close stops accepting messages and waits for queued ones to be delivered,
// or for ctx to end.
func (d *NotificationDispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.done)
	}
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) Stats() (delivered, failed, dropped uint64) {
	return d.delivered.Load(), d.failed.Load(), d.dropped.Load()
}
