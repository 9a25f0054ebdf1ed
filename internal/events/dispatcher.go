package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fileflow/internal/domain/models"
	"fileflow/internal/domain/repositories"
)

type event struct {
	typ     string
	payload map[string]any
	at      time.Time
}

// Dispatcher is an in-process Sink backed by a bounded queue and a single
// worker. Events with a recipient are persisted as notifications; every event
// is logged as an analytics record. A full queue drops the event.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	logger        *slog.Logger

	queue  chan event
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewDispatcher creates a dispatcher. notifications may be nil, in which case
// events are only logged.
func NewDispatcher(notifications repositories.NotificationRepository, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		notifications: notifications,
		logger:        logger,
		queue:         make(chan event, buffer),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start launches the worker.
func (d *Dispatcher) Start() {
	go d.worker()
}

// Emit enqueues an event without blocking.
func (d *Dispatcher) Emit(_ context.Context, eventType string, payload map[string]any) {
	select {
	case d.queue <- event{typ: eventType, payload: payload, at: time.Now()}:
	default:
		d.logger.Warn("event dropped, queue full", "type", eventType)
	}
}

// Close drains queued events and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stopCh)
		<-d.doneCh
	})
}

func (d *Dispatcher) worker() {
	defer close(d.doneCh)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stopCh:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev event) {
	d.logger.Info("analytics event", "type", ev.typ, "at", ev.at, "payload", ev.payload)

	recipient, _ := ev.payload[KeyRecipient].(string)
	if recipient == "" || d.notifications == nil {
		return
	}
	title, _ := ev.payload[KeyTitle].(string)
	if title == "" {
		title = ev.typ
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n := &models.Notification{
		UserID:    recipient,
		Type:      ev.typ,
		Title:     title,
		Payload:   ev.payload,
		CreatedAt: ev.at,
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		d.logger.Warn("failed to persist notification", "type", ev.typ, "user_id", recipient, "error", err)
	}
}
