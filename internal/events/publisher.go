package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Topics recognized by downstream consumers. The names are part of the
// integration contract and must not change.
const (
	TopicTaskCreated          = "task-created"
	TopicTaskUpdated          = "task-updated"
	TopicProjectCreated       = "project-created"
	TopicProjectUpdated       = "project-updated"
	TopicAIEstimationRequest  = "ai-estimation-request"
	TopicAIEstimationResponse = "ai-estimation-response"
	TopicJiraUpdate           = "jira-update"
)

// SerializationError reports a message that has no JSON encoding. The
// originating mutation is already persisted when this surfaces.
type SerializationError struct {
	Topic string
	Err   error
}

func (e SerializationError) Error() string {
	return fmt.Sprintf("serialize message for topic %s: %v", e.Topic, e.Err)
}

func (e SerializationError) Unwrap() error { return e.Err }

// Transport delivers an encoded message. Implementations must not be relied
// on for acknowledgment; delivery is fire-and-forget from the caller's view.
type Transport interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Publisher translates domain changes into keyed messages for external
// consumers. Serialization failures are returned; transport failures are
// logged and swallowed, so a persisted mutation is never reverted by a
// delivery problem.
type Publisher struct {
	Transport Transport
}

func (p Publisher) Publish(ctx context.Context, topic, key string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return SerializationError{Topic: topic, Err: err}
	}
	if p.Transport == nil {
		return nil
	}
	if err := p.Transport.Publish(ctx, topic, key, payload); err != nil {
		log.Printf("events: publish to %s (key %s) failed: %v", topic, key, err)
	}
	return nil
}

// LogTransport writes deliveries to the process log. It is the default when
// no broker is configured.
type LogTransport struct{}

func (LogTransport) Publish(_ context.Context, topic, key string, payload []byte) error {
	log.Printf("events: %s key=%s payload=%s", topic, key, payload)
	return nil
}
