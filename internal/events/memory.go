package events

import (
	"context"
	"sync"
)

// Record is one captured delivery.
type Record struct {
	Topic   string
	Key     string
	Payload []byte
}

// MemoryTransport captures deliveries in memory. Used in tests and by the
// CLI dry-run mode.
type MemoryTransport struct {
	mu      sync.Mutex
	records []Record
	fail    error
}

func (t *MemoryTransport) Publish(_ context.Context, topic, key string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	t.records = append(t.records, Record{Topic: topic, Key: key, Payload: cp})
	return nil
}

// Records returns a snapshot of everything published so far.
func (t *MemoryTransport) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// FailWith makes subsequent publishes return err.
func (t *MemoryTransport) FailWith(err error) {
	t.mu.Lock()
	t.fail = err
	t.mu.Unlock()
}
