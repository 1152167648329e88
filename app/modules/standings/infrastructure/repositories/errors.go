package standingsdb

import "errors"

// Sentinel errors for the repository layer.
var (
	// ErrNoSnapshot indicates the season has no standings snapshot yet.
	ErrNoSnapshot = errors.New("no standings snapshot for season")
)
