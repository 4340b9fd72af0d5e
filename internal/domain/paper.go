package domain

import "time"

// Paper is a search hit. It lives for a single pipeline run.
type Paper struct {
	ExternalID  string
	Title       string
	Authors     []string
	Abstract    string
	URL         string
	DOI         string
	PublishedAt time.Time
}

// Ticket is an issue pulled from the ticket tracker.
type Ticket struct {
	Key         string
	Summary     string
	Description string
	Status      string
	Labels      []string
}
