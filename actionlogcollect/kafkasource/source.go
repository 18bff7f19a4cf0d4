// Package kafkasource binds the collector to the action-log topic with a
// segmentio/kafka-go consumer group reader.
package kafkasource

import (
	"context"
	"fmt"

	segmentio "github.com/segmentio/kafka-go"

	"github.com/corewire/actionlog/actionlogcollect"
)

// Source implements actionlogcollect.Source over a consumer group reader.
// Offsets advance only through Commit, never on fetch.
type Source struct {
	reader *segmentio.Reader
}

var _ actionlogcollect.Source = (*Source)(nil)

// NewSource constructs a Source reading the action-log topic as the given
// consumer group.
func NewSource(brokers []string, groupID string) *Source {
	return &Source{
		reader: segmentio.NewReader(segmentio.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   "action-log",
		}),
	}
}

// Fetch implements actionlogcollect.Source.
func (s *Source) Fetch(ctx context.Context) (actionlogcollect.Message, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return actionlogcollect.Message{}, err
	}
	return actionlogcollect.Message{Value: msg.Value, Ref: msg}, nil
}

// Commit implements actionlogcollect.Source.
func (s *Source) Commit(ctx context.Context, msgs ...actionlogcollect.Message) error {
	kmsgs := make([]segmentio.Message, 0, len(msgs))
	for _, m := range msgs {
		km, ok := m.Ref.(segmentio.Message)
		if !ok {
			return fmt.Errorf("commit: message ref is %T, not a kafka message", m.Ref)
		}
		kmsgs = append(kmsgs, km)
	}
	return s.reader.CommitMessages(ctx, kmsgs...)
}

// Close closes the underlying reader.
func (s *Source) Close() error {
	return s.reader.Close()
}
