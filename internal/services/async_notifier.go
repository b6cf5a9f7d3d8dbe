package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

// Deliverer persists and pushes a single notification
type Deliverer interface {
	Deliver(ctx context.Context, kind models.NotificationType, recipientUserID string, res models.Reservation, trip models.Trip) error
}

type notifyJob struct {
	kind      models.NotificationType
	recipient string
	res       models.Reservation
	trip      models.Trip
}

// AsyncNotifier queues notifications and delivers them on a background
// goroutine so booking and cancellation never wait on them. When the queue
// is full the notification is dropped and logged.
type AsyncNotifier struct {
	deliverer Deliverer
	logger    *logrus.Logger
	jobs      chan notifyJob
	stopCh    chan struct{}
	doneCh    chan struct{}
	timeout   time.Duration
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewAsyncNotifier creates a notifier with a queue of queueSize jobs
func NewAsyncNotifier(deliverer Deliverer, queueSize int, logger *logrus.Logger) *AsyncNotifier {
	if queueSize < 1 {
		queueSize = 1
	}
	return &AsyncNotifier{
		deliverer: deliverer,
		logger:    logger,
		jobs:      make(chan notifyJob, queueSize),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		timeout:   10 * time.Second,
	}
}

// Start begins delivering queued notifications
func (n *AsyncNotifier) Start() {
	n.startOnce.Do(func() {
		n.logger.Info("📨 Starting notification dispatcher")
		go n.run()
	})
}

// Stop delivers whatever is already queued and then returns
func (n *AsyncNotifier) Stop() {
	n.stopOnce.Do(func() {
		n.logger.Info("🛑 Stopping notification dispatcher")
		close(n.stopCh)
	})
	n.startOnce.Do(func() { close(n.doneCh) })
	<-n.doneCh
}

// Notify enqueues a notification without blocking
func (n *AsyncNotifier) Notify(kind models.NotificationType, recipientUserID string, res models.Reservation, trip models.Trip) {
	select {
	case <-n.stopCh:
		n.logger.WithFields(logrus.Fields{
			"type":           kind,
			"reservation_id": res.ID,
		}).Warn("Notification dropped: dispatcher stopped")
		return
	default:
	}

	select {
	case n.jobs <- notifyJob{kind: kind, recipient: recipientUserID, res: res, trip: trip}:
	default:
		n.logger.WithFields(logrus.Fields{
			"type":           kind,
			"recipient":      recipientUserID,
			"reservation_id": res.ID,
		}).Warn("Notification dropped: queue full")
	}
}

func (n *AsyncNotifier) run() {
	defer close(n.doneCh)

	for {
		select {
		case job := <-n.jobs:
			n.deliver(job)
		case <-n.stopCh:
			n.drain()
			n.logger.Info("Notification dispatcher stopped")
			return
		}
	}
}

func (n *AsyncNotifier) drain() {
	for {
		select {
		case job := <-n.jobs:
			n.deliver(job)
		default:
			return
		}
	}
}

func (n *AsyncNotifier) deliver(job notifyJob) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			n.logger.WithField("panic", r).Error("Notification delivery panicked")
		}
	}()

	if err := n.deliverer.Deliver(ctx, job.kind, job.recipient, job.res, job.trip); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"type":           job.kind,
			"recipient":      job.recipient,
			"reservation_id": job.res.ID,
		}).Error("Failed to deliver notification")
	}
}
