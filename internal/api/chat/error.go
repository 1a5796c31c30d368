package chat

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrPipelineTimeout = errors.New("pipeline deadline exceeded")
)
