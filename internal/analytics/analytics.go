// Package analytics exports finished chat turns to an external sink, off the request path.
package analytics

import (
	"context"
	"time"

	"animalcare-rag/internal/model"
)

// TimestampLayout renders export timestamps as day-month-year hour:minute:second.
const TimestampLayout = "02-01-2006 15:04:05"

type TurnEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id"`
	Model     model.ModelName `json:"model"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
}

// Row is the exported row: timestamp, question, answer.
func (e TurnEvent) Row() []interface{} {
	return []interface{}{e.Timestamp.Format(TimestampLayout), e.Question, e.Answer}
}

type Sink interface {
	Record(ctx context.Context, ev TurnEvent) error
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Record(context.Context, TurnEvent) error { return nil }

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev TurnEvent) error

func (f SinkFunc) Record(ctx context.Context, ev TurnEvent) error { return f(ctx, ev) }
