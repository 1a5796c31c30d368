package kb

import "errors"

var (
	ErrIntentNotFound    = errors.New("intent not found")
	ErrEmptyPattern      = errors.New("pattern is empty")
	ErrCorpusUnavailable = errors.New("knowledge corpus unavailable")
)
