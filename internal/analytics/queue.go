package analytics

import (
	"context"
	"fmt"
)

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// QueueSink hands events to a message queue; the export worker drains it into the final sink.
type QueueSink struct {
	publisher Publisher
}

func NewQueueSink(publisher Publisher) *QueueSink {
	return &QueueSink{publisher: publisher}
}

func (q *QueueSink) Record(ctx context.Context, ev TurnEvent) error {
	if err := q.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("queue turn event failed: %w", err)
	}
	return nil
}
