package queue

import "context"

// Job handles one message type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// DeadLetterHandler is implemented by jobs that need to know when a message
// exhausted its retries and was parked in the dead letter list.
type DeadLetterHandler interface {
	OnDeadLetter(ctx context.Context, payload interface{}, err error)
}
