// Package events publishes bug lifecycle notifications to Kafka so other
// systems can react to reports without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bugtracker/bug-service/internal/bug"
	"github.com/bugtracker/bug-service/pkg/logger"
	"github.com/bugtracker/bug-service/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

type Type string

const (
	BugCreated Type = "bug.created"
	BugUpdated Type = "bug.updated"
	BugDeleted Type = "bug.deleted"
)

// Event is the JSON value written to the topic. The message key is the bug id
// so every event for one bug lands on the same partition.
type Event struct {
	Type       Type      `json:"type"`
	BugID      string    `json:"bugId"`
	Bug        *bug.Bug  `json:"bug,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, b *bug.Bug) Event {
	return Event{Type: t, BugID: b.ID, Bug: b, OccurredAt: time.Now().UTC()}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events synchronously to a single topic.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	brokers []string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic, brokers: brokers}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.BugID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(string(evt.Type), "error").Inc()
		return fmt.Errorf("publish %s to %s: %w", evt.Type, p.topic, err)
	}
	metrics.EventsPublished.WithLabelValues(string(evt.Type), "ok").Inc()
	logger.Debugf("events: published %s for bug %s", evt.Type, evt.BugID)
	return nil
}

// Ping succeeds when any configured broker accepts a connection.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr != nil {
		return fmt.Errorf("kafka dial: %w", lastErr)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
