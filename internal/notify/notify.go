// Package notify delivers post-reservation notifications on a best-effort
// basis: failures are retried once, logged and never reported to callers.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slotkeeper/pkg/kafka"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/metrics"
	"slotkeeper/pkg/model"
)

type Kind string

const (
	KindReservationConfirmed Kind = "reservation_confirmed"
	KindReservationHeld      Kind = "reservation_held"
)

const (
	EventSource        = "slotkeeper"
	EventSchemaVersion = "1"
)

type Sender interface {
	SendNotification(ctx context.Context, kind Kind, reservation model.Reservation) error
}

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type Event struct {
	Kind          Kind                    `json:"kind"`
	ReservationID string                  `json:"reservation_id"`
	BusinessID    string                  `json:"business_id"`
	BranchID      string                  `json:"branch_id"`
	ServiceID     string                  `json:"service_id"`
	StaffID       string                  `json:"staff_id"`
	StartAt       time.Time               `json:"start_at"`
	Status        model.ReservationStatus `json:"status"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// KafkaSender hands notifications to the dispatcher service through Kafka,
// keyed by reservation id so events of one reservation stay ordered.
type KafkaSender struct {
	publisher Publisher
}

func NewKafkaSender(publisher Publisher) *KafkaSender {
	return &KafkaSender{publisher: publisher}
}

func (s *KafkaSender) SendNotification(ctx context.Context, kind Kind, r model.Reservation) error {
	msg, err := kafka.NewMessage().
		WithKey(r.ID).
		WithValue(Event{
			Kind:          kind,
			ReservationID: r.ID,
			BusinessID:    r.BusinessID,
			BranchID:      r.BranchID,
			ServiceID:     r.ServiceID,
			StaffID:       r.StaffID,
			StartAt:       r.StartAt,
			Status:        r.Status,
			OccurredAt:    time.Now().UTC(),
		}).
		WithEventType(string(kind)).
		WithSchemaVersion(EventSchemaVersion).
		WithSource(EventSource).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build notification: %w", err)
	}
	return s.publisher.Publish(ctx, msg)
}

// LogSender only logs. Used when notifications are disabled.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendNotification(_ context.Context, kind Kind, r model.Reservation) error {
	s.log.Info("Notification skipped, dispatcher disabled", "kind", kind, "reservation_id", r.ID)
	return nil
}

type Dispatcher struct {
	sender     Sender
	retryDelay time.Duration
	timeout    time.Duration
	metrics    *metrics.EngineMetrics
	log        *logger.Logger
	wg         sync.WaitGroup
}

func NewDispatcher(sender Sender, retryDelay, timeout time.Duration, m *metrics.EngineMetrics, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		retryDelay: retryDelay,
		timeout:    timeout,
		metrics:    m,
		log:        log,
	}
}

// Dispatch sends in the background and returns immediately. The send is
// detached from ctx cancellation so a finished request does not abort it.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, r model.Reservation) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ctx, kind, r)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, kind Kind, r model.Reservation) {
	err := d.send(ctx, kind, r)
	if err == nil {
		d.metrics.ObserveNotification("sent")
		return
	}
	d.log.Warn("Notification failed, retrying once",
		"kind", kind,
		"reservation_id", r.ID,
		"retry_in", d.retryDelay,
		"error", err,
	)

	time.Sleep(d.retryDelay)

	if err := d.send(ctx, kind, r); err != nil {
		d.metrics.ObserveNotification("failed")
		d.log.Error("Notification dropped after retry",
			"kind", kind,
			"reservation_id", r.ID,
			"error", err,
		)
		return
	}
	d.metrics.ObserveNotification("retried")
}

func (d *Dispatcher) send(ctx context.Context, kind Kind, r model.Reservation) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.sender.SendNotification(ctx, kind, r)
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
