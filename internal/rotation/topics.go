package rotation

import (
	"context"
	"errors"
	"fmt"

	"reelforge/internal/store"
)

var ErrNoActiveTopics = errors.New("no active topics")

type TopicStore interface {
	ActiveTopics(ctx context.Context) ([]store.Topic, error)
	TouchTopicUsage(ctx context.Context, id uint) error
}

// TopicSelector rotates through active topics in creation order using the
// topic counter, not timestamps, so concurrent batch creation cannot pick
// the same topic twice while stock lasts.
type TopicSelector struct {
	ledger *Ledger
	topics TopicStore
}

func NewTopicSelector(ledger *Ledger, topics TopicStore) *TopicSelector {
	return &TopicSelector{ledger: ledger, topics: topics}
}

func (s *TopicSelector) Next(ctx context.Context) (*store.Topic, error) {
	topics, err := s.topics.ActiveTopics(ctx)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, ErrNoActiveTopics
	}

	index, err := s.ledger.NextIndex(ctx, ClassTopic, len(topics))
	if err != nil {
		return nil, err
	}

	topic := topics[index]
	if err := s.topics.TouchTopicUsage(ctx, topic.ID); err != nil {
		return nil, fmt.Errorf("record topic usage: %w", err)
	}

	return &topic, nil
}

// UseNext arranges for the given topic to be the next natural selection by
// rewinding the ledger to the topic immediately preceding it.
func (s *TopicSelector) UseNext(ctx context.Context, topicID uint) error {
	topics, err := s.topics.ActiveTopics(ctx)
	if err != nil {
		return err
	}

	position := -1
	for i, topic := range topics {
		if topic.ID == topicID {
			position = i
			break
		}
	}
	if position < 0 {
		return fmt.Errorf("topic %d is not active", topicID)
	}

	return s.ledger.UseNext(ctx, ClassTopic, position, len(topics))
}
