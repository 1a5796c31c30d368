package whatsapp

import "errors"

var (
	ErrUnsupportedPayload = errors.New("unsupported webhook payload")
	ErrMissingSender      = errors.New("webhook payload missing sender")
	ErrDuplicateMessage   = errors.New("message already processed")
	ErrSendFailed         = errors.New("failed to send whatsapp message")
)
