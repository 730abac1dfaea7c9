package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/unique-shop/internal/metrics"
	"go.uber.org/zap"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher hands messages to a Sender on background workers so callers never
// wait on delivery. When the queue is full the message is dropped and logged.
type Dispatcher struct {
	sender      Sender
	queue       chan Message
	sendTimeout time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, queueSize, workers int, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan Message, queueSize),
		sendTimeout: 30 * time.Second,
		logger:      logger.With(zap.String("component", "notifier")),
		metrics:     m,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch queues msg and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(msg, "dispatcher_closed")
		return
	}
	select {
	case d.queue <- msg:
		d.metrics.Notification(string(msg.Template), "queued")
	default:
		d.drop(msg, "queue_full")
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sender panic: %v", r)
			}
		}()
		return d.sender.Send(ctx, msg)
	}()
	if err != nil {
		d.metrics.Notification(string(msg.Template), "failed")
		d.logger.Error("notification_failed",
			zap.String("template", string(msg.Template)),
			zap.String("order_number", msg.Order.Number),
			zap.Error(err),
		)
		return
	}
	d.metrics.Notification(string(msg.Template), "sent")
	d.logger.Info("notification_sent",
		zap.String("template", string(msg.Template)),
		zap.String("order_number", msg.Order.Number),
	)
}

func (d *Dispatcher) drop(msg Message, reason string) {
	d.metrics.Notification(string(msg.Template), "dropped")
	d.logger.Warn("notification_dropped",
		zap.String("reason", reason),
		zap.String("template", string(msg.Template)),
		zap.String("order_number", msg.Order.Number),
	)
}
