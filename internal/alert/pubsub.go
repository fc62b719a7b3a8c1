package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
)

// PubSub publishes alert messages to a Google Cloud Pub/Sub topic so
// downstream consumers (digest builders, ticket bots) can react to
// changes without polling.
type PubSub struct {
	topic *pubsub.Topic
}

// NewPubSub connects a client and returns a publisher for the topic.
func NewPubSub(ctx context.Context, projectID, topicName string) (*PubSub, error) {
	if projectID == "" || topicName == "" {
		return nil, fmt.Errorf("pubsub project id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &PubSub{topic: client.Topic(topicName)}, nil
}

// NewPubSubWithTopic wraps an existing topic (tests).
func NewPubSubWithTopic(topic *pubsub.Topic) *PubSub {
	return &PubSub{topic: topic}
}

// Send implements tracker.Notifier.
func (p *PubSub) Send(ctx context.Context, message string) error {
	if p.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(map[string]string{
		"message": message,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Stop flushes pending publishes.
func (p *PubSub) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
