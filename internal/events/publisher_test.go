package events_test

import (
	"context"
	"errors"
	"testing"

	"projectline/internal/events"
)

func TestPublishDeliversJSON(t *testing.T) {
	mem := &events.MemoryTransport{}
	pub := events.Publisher{Transport: mem}

	err := pub.Publish(context.Background(), events.TopicTaskCreated, "42", map[string]any{"title": "work"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	recs := mem.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Topic != "task-created" || recs[0].Key != "42" {
		t.Fatalf("wrong envelope: %+v", recs[0])
	}
	if string(recs[0].Payload) != `{"title":"work"}` {
		t.Fatalf("wrong payload: %s", recs[0].Payload)
	}
}

func TestPublishSerializationFailureSurfaces(t *testing.T) {
	mem := &events.MemoryTransport{}
	pub := events.Publisher{Transport: mem}

	err := pub.Publish(context.Background(), events.TopicProjectCreated, "1", make(chan int))
	var serr events.SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("expected serialization error, got %v", err)
	}
	if serr.Topic != events.TopicProjectCreated {
		t.Fatalf("wrong topic on error: %s", serr.Topic)
	}
	if len(mem.Records()) != 0 {
		t.Fatal("nothing must reach the transport on a serialization failure")
	}
}

func TestPublishSwallowsTransportFailure(t *testing.T) {
	mem := &events.MemoryTransport{}
	mem.FailWith(errors.New("broker down"))
	pub := events.Publisher{Transport: mem}

	if err := pub.Publish(context.Background(), events.TopicTaskUpdated, "7", struct{}{}); err != nil {
		t.Fatalf("transport failure must not surface, got %v", err)
	}
}

func TestPublishWithoutTransport(t *testing.T) {
	var pub events.Publisher
	if err := pub.Publish(context.Background(), events.TopicJiraUpdate, "9", struct{}{}); err != nil {
		t.Fatalf("nil transport publish: %v", err)
	}
}
