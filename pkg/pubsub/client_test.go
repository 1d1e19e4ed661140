package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/tokenomics/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"proj", "notifications", "projects/proj/topics/notifications"},
		{"proj", " projects/other/topics/n ", "projects/other/topics/n"},
		{"proj", "", ""},
		{"", "notifications", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{NotificationTopic: "n"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if err := c.Publish(context.Background(), []byte("x"), nil); err == nil {
		t.Fatal("expected publish on nil client to fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op, got %v", err)
	}
}
