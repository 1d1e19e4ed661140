package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client publishes notification payloads to a single Pub/Sub topic.
type Client struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	projectID string
	topic     string
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub notification topic is required")
)

// NewClient creates a Pub/Sub v2 client and ensures the notification topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	topic := topicResourceName(gcp.ProjectID, cfg.NotificationTopic)
	if topic == "" {
		return nil, errTopicRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: gcp.ProjectID,
		topic:     topic,
	}
	if err := c.ensureTopicExists(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	c.publisher = psClient.Publisher(topic)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub publisher initialized")
	}
	return c, nil
}

func (c *Client) ensureTopicExists(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %q does not exist", c.topic)
		}
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

// Publish sends one message and waits for the server acknowledgement.
func (c *Client) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	if c == nil || c.publisher == nil {
		return errors.New("pubsub client not initialized")
	}
	result := c.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %q: %w", c.topic, err)
	}
	return nil
}

// Ping verifies Pub/Sub connectivity by checking the topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.ensureTopicExists(ctx)
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}

func topicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}
