package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"ResearchDigest/internal/ports"
	"ResearchDigest/pkg/logger"
)

// CronScheduler runs triggers on a robfig/cron instance. Each job is wrapped
// so that a fire arriving while the same job still runs is skipped.
type CronScheduler struct {
	cron   *cron.Cron
	logger cron.Logger
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating standard five-field specs in loc.
func NewCronScheduler(loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	cl := logger.NewCron(log)
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger: cl,
	}
}

// Schedule adds a job under a cron spec such as "0 9 * * 1".
func (c *CronScheduler) Schedule(spec string, job func()) (ports.TriggerID, error) {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(c.logger)).Then(cron.FuncJob(job))
	id, err := c.cron.AddJob(spec, wrapped)
	if err != nil {
		return 0, err
	}
	return ports.TriggerID(id), nil
}

// Remove drops an entry; unknown ids are ignored.
func (c *CronScheduler) Remove(id ports.TriggerID) {
	c.cron.Remove(cron.EntryID(id))
}

// Start begins firing in a background goroutine. Calling it again is a no-op.
func (c *CronScheduler) Start() {
	c.cron.Start()
}

// Stop halts firing; the returned context is done once running jobs finish.
func (c *CronScheduler) Stop() context.Context {
	return c.cron.Stop()
}

// Len reports the number of registered entries.
func (c *CronScheduler) Len() int {
	return len(c.cron.Entries())
}

// Next returns the next fire time of an entry, zero if unknown or not started.
func (c *CronScheduler) Next(id ports.TriggerID) time.Time {
	return c.cron.Entry(cron.EntryID(id)).Next
}
