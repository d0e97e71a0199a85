package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreamTransport publishes onto Redis Streams, one stream per topic. The
// message key rides along as a field so stream consumers can partition on it
// the same way Kafka consumers would.
type StreamTransport struct {
	Client *redis.Client
	MaxLen int64
}

func NewStreamTransport(addr string, maxLen int64) *StreamTransport {
	return &StreamTransport{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		MaxLen: maxLen,
	}
}

func (t *StreamTransport) Publish(ctx context.Context, topic, key string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			"id":      uuid.New().String(),
			"key":     key,
			"payload": payload,
		},
	}
	if t.MaxLen > 0 {
		args.MaxLen = t.MaxLen
		args.Approx = true
	}
	return t.Client.XAdd(ctx, args).Err()
}

func (t *StreamTransport) Close() error {
	return t.Client.Close()
}
