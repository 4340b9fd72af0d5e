package domain

import "errors"

var (
	// ErrPersistence wraps configuration store I/O failures.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidConfiguration marks malformed submitted or stored data.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrSearch marks literature search failures.
	ErrSearch = errors.New("search error")
	// ErrSummarization marks language model failures.
	ErrSummarization = errors.New("summarization error")
	// ErrDelivery marks failures to post into a channel.
	ErrDelivery = errors.New("delivery error")
	// ErrNotFound is returned when a configuration id does not exist.
	ErrNotFound = errors.New("configuration not found")
	// ErrNotScheduled means a configuration was stored but its trigger could not be installed.
	ErrNotScheduled = errors.New("saved but not scheduled")
)
