package eventsdb

import "errors"

var (
	// ErrUnknownKind rejects event kinds outside the closed enum.
	ErrUnknownKind = errors.New("unknown event kind")
)
