package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	amqp "github.com/rabbitmq/amqp091-go"

	"animalcare-rag/internal/analytics"
	"animalcare-rag/internal/platform/rabbitmq"
)

// AnalyticsExportWorker drains queued turn events into the export sink.
type AnalyticsExportWorker struct {
	conn      *amqp.Connection
	sink      analytics.Sink
	queueName string
	timeout   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnalyticsExportWorker(conn *amqp.Connection, sink analytics.Sink, queueName string, timeout time.Duration) *AnalyticsExportWorker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AnalyticsExportWorker{
		conn:      conn,
		sink:      sink,
		queueName: queueName,
		timeout:   timeout,
	}
}

func (w *AnalyticsExportWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	logger.Infow("analytics export worker started", "queue", w.queueName)
	return nil
}

// Acknowledger is the subset of amqp.Delivery the worker settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (w *AnalyticsExportWorker) handle(ctx context.Context, d amqp.Delivery) {
	w.process(ctx, d.Body, d.Redelivered, d)
}

// process exports one payload. Undecodable payloads are dropped; sink failures are requeued once.
func (w *AnalyticsExportWorker) process(ctx context.Context, body []byte, redelivered bool, ack Acknowledger) {
	var ev analytics.TurnEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Warnw("worker decode turn event failed", "error", err)
		_ = ack.Nack(false, false)
		return
	}

	recordCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sink.Record(recordCtx, ev); err != nil {
		logger.Warnw("worker export turn event failed", "session_id", ev.SessionID, "redelivered", redelivered, "error", err)
		_ = ack.Nack(false, !redelivered)
		return
	}

	_ = ack.Ack(false)
}

func (w *AnalyticsExportWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
