package ports

import (
	"context"

	"ResearchDigest/internal/domain"
)

// PaperSource finds papers on the given topics published within the lookback window.
type PaperSource interface {
	Search(ctx context.Context, topics []string, lookbackDays int) ([]domain.Paper, error)
}

// ConfigurationStore persists monitoring configurations.
type ConfigurationStore interface {
	Create(ctx context.Context, cfg domain.Configuration) (int64, error)
	Get(ctx context.Context, id int64) (domain.Configuration, error)
	List(ctx context.Context) ([]domain.Configuration, error)
	Update(ctx context.Context, id int64, cfg domain.Configuration) error
	Delete(ctx context.Context, id int64) error
}

// ConfigurationLister is the read-only slice of the store used at startup.
type ConfigurationLister interface {
	List(ctx context.Context) ([]domain.Configuration, error)
}

// Summarizer turns a batch of papers into a formatted digest.
type Summarizer interface {
	Summarize(ctx context.Context, papers []domain.Paper, topics []string) (string, error)
}

// Messenger posts messages to a chat channel.
type Messenger interface {
	Post(ctx context.Context, channel string, msg domain.Message) error
}

// TicketSource pulls tickets from the issue tracker (Jira, etc.).
type TicketSource interface {
	EpicTickets(ctx context.Context, epicKey string) ([]domain.Ticket, error)
}

// TriggerID identifies an entry inside a Scheduler.
type TriggerID int

// Scheduler is the recurring-trigger facility (cron and similar).
type Scheduler interface {
	Schedule(spec string, job func()) (TriggerID, error)
	Remove(id TriggerID)
	Start()
	Stop() context.Context
}
