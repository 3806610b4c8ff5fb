package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"healthcare-admin-server/internal/metrics"
)

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("dispatcher closed")

// Options sizes a Dispatcher.
type Options struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher is a bounded queue in front of a Handler. Publish never blocks
// and handler failures never reach the publisher.
type Dispatcher struct {
	handler Handler
	log     *logrus.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts opts.Workers goroutines consuming from a queue of
// opts.QueueSize events.
func NewDispatcher(handler Handler, opts Options, log *logrus.Logger, m *metrics.Metrics) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}

	d := &Dispatcher{
		handler: handler,
		log:     log,
		metrics: m,
		timeout: opts.SendTimeout,
		queue:   make(chan Event, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Publish enqueues event. It returns false when the queue is full or the
// dispatcher is closed; the event is then dropped.
func (d *Dispatcher) Publish(event Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- event:
		d.metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.drop(event, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(event Event, reason string) {
	d.metrics.NotificationsTotal.WithLabelValues(string(event.Kind), "dropped").Inc()
	d.log.WithFields(logrus.Fields{
		"kind":           event.Kind,
		"appointment_id": event.AppointmentID,
		"reason":         reason,
	}).Warn("Notification dropped")
}

// Close stops accepting events and waits for queued ones to be handled or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining notification queue: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for event := range d.queue {
		d.metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.handle(id, event)
	}
}

func (d *Dispatcher) handle(worker int, event Event) {
	entry := d.log.WithFields(logrus.Fields{
		"worker":         worker,
		"kind":           event.Kind,
		"appointment_id": event.AppointmentID,
	})

	start := time.Now()
	err := d.safeHandle(event)
	d.metrics.NotificationDuration.WithLabelValues(string(event.Kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		d.metrics.NotificationsTotal.WithLabelValues(string(event.Kind), "failed").Inc()
		entry.WithError(err).Error("Notification failed")
		return
	}
	d.metrics.NotificationsTotal.WithLabelValues(string(event.Kind), "sent").Inc()
	entry.Debug("Notification sent")
}

func (d *Dispatcher) safeHandle(event Event) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification handler panic: %v", r)
		}
	}()
	return d.handler.Handle(ctx, event)
}
