package errs

import "errors"

// Domain sentinel errors, mapped to HTTP codes in handlers.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionEnded        = errors.New("cannot append to ended session")
	ErrSessionAlreadyEnded = errors.New("session already ended")

	ErrEmptyTitle          = errors.New("title must not be empty")
	ErrEmptyText           = errors.New("text must not be empty")
	ErrTextTooLong         = errors.New("text exceeds maximum length")
	ErrUnsupportedLanguage = errors.New("unsupported language tag")
)
