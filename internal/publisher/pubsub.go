// Package publisher pushes run-completion events to an external broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// PubSub publishes run events to a Google Cloud Pub/Sub topic using
// Application Default Credentials.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

var _ feed.Publisher = (*PubSub)(nil)

// NewPubSub creates a Pub/Sub client and verifies the topic exists so
// misconfiguration fails at startup.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSub{client: client, topic: topic, logger: logger}, nil
}

// NewPubSubWithTopic constructs a PubSub from an existing client and
// topic (primarily for testing).
func NewPubSubWithTopic(client *pubsub.Client, topic *pubsub.Topic, logger *zap.Logger) (*PubSub, error) {
	if client == nil || topic == nil {
		return nil, fmt.Errorf("client and topic are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSub{client: client, topic: topic, logger: logger}, nil
}

// Publish sends one event. The send is fire-and-forget; the client
// batches and retries in the background.
func (p *PubSub) Publish(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	p.topic.Publish(ctx, &pubsub.Message{Data: data})
	return nil
}

// Close stops the topic publisher and closes the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
