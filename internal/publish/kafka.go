package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wonny/movers/internal/movers"
)

// Event types
const (
	EventSnapshotStored = "SNAPSHOT_STORED"
)

// SnapshotEvent is the message published after every stored snapshot
type SnapshotEvent struct {
	EventType   string                 `json:"event_type"`
	RunID       string                 `json:"run_id"`
	State       string                 `json:"state"`
	Error       string                 `json:"error,omitempty"`
	Snapshot    *movers.MarketSnapshot `json:"snapshot"`
	PublishedAt time.Time              `json:"published_at"`
}

// NewSnapshotEvent builds the event for a run result
func NewSnapshotEvent(result *movers.RunResult, now time.Time) SnapshotEvent {
	event := SnapshotEvent{
		EventType:   EventSnapshotStored,
		RunID:       result.RunID,
		State:       result.State.String(),
		Snapshot:    result.Snapshot,
		PublishedAt: now,
	}
	if result.Err != nil {
		event.Error = result.Err.Error()
	}
	return event
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes snapshot events to a Kafka topic
// ⭐ SSOT: 스냅샷 이벤트 발행은 여기서만
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher for topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, topic: topic, now: time.Now}
}

// Publish writes one SnapshotEvent keyed by run id
func (p *KafkaPublisher) Publish(ctx context.Context, result *movers.RunResult) error {
	event := NewSnapshotEvent(result, p.now())

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Topic returns the destination topic
func (p *KafkaPublisher) Topic() string {
	return p.topic
}

// Close closes the Kafka writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
