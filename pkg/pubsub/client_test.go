package pubsub

import (
	"context"
	"testing"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project string
		name    string
		want    string
	}{
		{project: "dental-prod", name: "domain-events", want: "projects/dental-prod/topics/domain-events"},
		{project: "dental-prod", name: " projects/other/topics/x ", want: "projects/other/topics/x"},
		{project: "", name: "domain-events", want: ""},
		{project: "dental-prod", name: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := topicResourceName(tt.project, tt.name); got != tt.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tt.project, tt.name, got, tt.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.DomainPublisher() != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if c.Topic() != "" {
		t.Fatal("expected empty topic from nil client")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
