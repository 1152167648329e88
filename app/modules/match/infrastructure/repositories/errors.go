package matchdb

import "errors"

var (
	// ErrMatchNotFound indicates the match id matched no row.
	ErrMatchNotFound = errors.New("match not found")

	// ErrProposalNotFound indicates the proposal id matched no row.
	ErrProposalNotFound = errors.New("date proposal not found")
)
