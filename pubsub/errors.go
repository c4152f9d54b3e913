package pubsub

import "errors"

var (
	ErrEmptyTopic   = errors.New("pubsub: topic name cannot be empty")
	ErrEmptyMessage = errors.New("pubsub: message payload cannot be empty")
	ErrClosed       = errors.New("pubsub: service is closed")
)
