// Package kafka publishes action documents to the action-log topic with a
// segmentio/kafka-go writer.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	segmentio "github.com/segmentio/kafka-go"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogforward"
)

// Topic is the wire topic for action documents.
const Topic = "action-log"

// Publisher writes JSON-encoded action documents to Kafka, keyed by app so
// one application's records stay on one partition.
type Publisher struct {
	writer *segmentio.Writer
}

var _ actionlogforward.Publisher = (*Publisher)(nil)

// NewPublisher constructs a Publisher against the given brokers. The writer
// requires at-least-once acknowledgment from the partition leader.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &segmentio.Writer{
			Addr:         segmentio.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &segmentio.Hash{},
			RequiredAcks: segmentio.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// Publish implements actionlogforward.Publisher.
func (p *Publisher) Publish(ctx context.Context, doc *actionlog.ActionDocument) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	err = p.writer.WriteMessages(ctx, segmentio.Message{
		Key:   []byte(doc.App),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", Topic, err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
