// Package pubsub relays discoveries to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// Notifier publishes each discovery as a JSON message and waits for the
// server to acknowledge it.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewNotifier connects to projectID with Application Default Credentials and
// checks that topicID exists.
func NewNotifier(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*Notifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	n, err := FromClient(ctx, client, topicID, logger)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil && logger != nil {
			logger.Warn("failed to close pubsub client after topic check", zap.Error(closeErr))
		}
		return nil, err
	}
	return n, nil
}

// FromClient wraps an existing client.
func FromClient(ctx context.Context, client *pubsub.Client, topicID string, logger *zap.Logger) (*Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: pubsub topic %q does not exist", prober.ErrConfigurationMissing, topicID)
	}
	return &Notifier{client: client, topic: topic, logger: logger.Named("pubsub")}, nil
}

// Notify implements prober.Notifier.
func (n *Notifier) Notify(ctx context.Context, note prober.Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"target": note.Target,
			"id":     strconv.FormatInt(note.ID, 10),
		},
	}
	id, err := n.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	n.logger.Debug("notification published", zap.String("message_id", id), zap.Int64("id", note.ID))
	return nil
}

// Close flushes pending publishes and closes the client.
func (n *Notifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub client: %w", err)
	}
	return nil
}
