package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger routes cron's internal logging into slog. Cron reports every
// wake-up at info level, so those go to debug.
type CronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = CronLogger{}

// NewCron returns a cron.Logger backed by l; a nil l discards everything.
func NewCron(l *slog.Logger) CronLogger {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return CronLogger{log: l}
}

// Info implements cron.Logger.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

// Error implements cron.Logger.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
