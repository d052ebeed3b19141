package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService publishes messages for registered jobs.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig tunes workers and retries.
type QueueConfig struct {
	Workers       int
	RetryLimit    int
	RetryDelay    time.Duration // first retry delay, doubled per attempt
	MaxRetryDelay time.Duration
	JobTimeout    time.Duration // 0 means no per-message deadline
}

// Message is the stored envelope. Payload is kept as raw JSON so jobs decode
// it into their own types with ParsePayload.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func newMessage(id, msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{ID: id, Type: msgType, Payload: raw, Timestamp: time.Now().UTC()}, nil
}

// backoff returns the delay before the given retry attempt (1-based).
func (c *QueueConfig) backoff(attempt int) time.Duration {
	d := c.RetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.MaxRetryDelay > 0 && d >= c.MaxRetryDelay {
			return c.MaxRetryDelay
		}
	}
	if c.MaxRetryDelay > 0 && d > c.MaxRetryDelay {
		return c.MaxRetryDelay
	}
	return d
}

// ParsePayload converts a job payload into T. Queued messages arrive as
// json.RawMessage; in-process callers may pass T, *T or a decoded map.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		return decode[T](p)
	case []byte:
		return decode[T](p)
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("re-encode payload: %w", err)
		}
		return decode[T](raw)
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}

func decode[T any](raw []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
