package notification

import (
	"context"
	"sync"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/bidworks/auctiond/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// NotificationSink is the narrow contract to the external notification
// delivery service (push, in-app inbox). Delivery mechanics live outside this
// service.
type NotificationSink interface {
	SendNotification(ctx context.Context, event domain.NotificationEvent) error
}

// EmailSink is the narrow contract to the external email delivery service.
type EmailSink interface {
	SendEmail(ctx context.Context, event domain.EmailEvent) error
}

// Dispatcher fans events out to the sinks through a worker pool. It is
// fire-and-forget and at-least-once from the caller's point of view: enqueue
// never blocks, a sink failure is logged and never reaches the business
// operation that produced the event, and a full queue drops the event with an
// error log rather than applying backpressure.
type Dispatcher struct {
	notifications chan domain.NotificationEvent
	emails        chan domain.EmailEvent

	workers          int
	notificationSink NotificationSink
	emailSink        EmailSink
}

func NewDispatcher(workers, queueSize int, notificationSink NotificationSink, emailSink EmailSink) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		notifications:    make(chan domain.NotificationEvent, queueSize),
		emails:           make(chan domain.EmailEvent, queueSize),
		workers:          workers,
		notificationSink: notificationSink,
		emailSink:        emailSink,
	}
}

// Run starts the worker pool and blocks until the context is cancelled and
// every worker has drained out.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info("Notification dispatcher started", zap.Int("workers", d.workers))

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.work(ctx, worker)
		}(i)
	}
	wg.Wait()
	log.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.notifications:
			if err := d.notificationSink.SendNotification(ctx, event); err != nil {
				log.Error("Dispatcher: notification delivery failed",
					zap.Int("worker", worker),
					zap.String("recipientID", event.RecipientID.String()),
					zap.String("type", string(event.Type)),
					zap.Error(err),
				)
			}
		case event := <-d.emails:
			if err := d.emailSink.SendEmail(ctx, event); err != nil {
				log.Error("Dispatcher: email delivery failed",
					zap.Int("worker", worker),
					zap.String("to", event.To),
					zap.Error(err),
				)
			}
		}
	}
}

// DispatchNotification queues a notification without blocking the caller.
func (d *Dispatcher) DispatchNotification(event domain.NotificationEvent) {
	select {
	case d.notifications <- event:
	default:
		log.Error("Dispatcher: notification queue full, event dropped",
			zap.String("recipientID", event.RecipientID.String()),
			zap.String("type", string(event.Type)),
		)
	}
}

// DispatchEmail queues an email without blocking the caller.
func (d *Dispatcher) DispatchEmail(event domain.EmailEvent) {
	select {
	case d.emails <- event:
	default:
		log.Error("Dispatcher: email queue full, event dropped",
			zap.String("to", event.To),
		)
	}
}
