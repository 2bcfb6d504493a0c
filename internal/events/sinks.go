package events

import (
	"context"
	"log/slog"
)

type KafkaPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type KafkaSink struct {
	Producer KafkaPublisher
	Topic    string
}

func (s KafkaSink) Name() string { return "kafka" }

func (s KafkaSink) Write(ctx context.Context, e Event) error {
	return s.Producer.PublishEvent(ctx, s.Topic, e.UserID, e)
}

type Indexer interface {
	Index(ctx context.Context, doc any) error
}

// AuditSink stores events in the search index.
type AuditSink struct {
	Indexer Indexer
}

func (s AuditSink) Name() string { return "audit" }

func (s AuditSink) Write(ctx context.Context, e Event) error {
	return s.Indexer.Index(ctx, e)
}

type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Name() string { return "log" }

func (s LogSink) Write(_ context.Context, e Event) error {
	s.Log.Info("security_event", "type", e.Type, "user_id", e.UserID, "ip", e.IP, "fields", e.Fields)
	return nil
}
