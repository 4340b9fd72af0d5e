package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

const jobKeyPrefix = "research_update_"

// Runner executes one update run; *Pipeline is the production implementation.
type Runner interface {
	Run(ctx context.Context, cfg domain.Configuration, messenger ports.Messenger) error
}

// FireTime is the global time of day (and weekday for weekly cadence) at which triggers fire.
type FireTime struct {
	Hour    int
	Minute  int
	Weekday time.Weekday
}

// DefaultFireTime is Monday 09:00.
var DefaultFireTime = FireTime{Hour: 9, Minute: 0, Weekday: time.Monday}

// ScheduleManager keeps exactly one trigger per configuration id.
type ScheduleManager struct {
	facility ports.Scheduler
	runner   Runner
	fireTime FireTime
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	entries map[string]ports.TriggerID
}

// NewScheduleManager wires the trigger facility with the pipeline.
func NewScheduleManager(facility ports.Scheduler, runner Runner, fireTime FireTime, log *slog.Logger) *ScheduleManager {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ScheduleManager{
		facility: facility,
		runner:   runner,
		fireTime: fireTime,
		logger:   log,
		entries:  map[string]ports.TriggerID{},
	}
}

// JobKey is the trigger key of a configuration.
func JobKey(id int64) string {
	return fmt.Sprintf("%s%d", jobKeyPrefix, id)
}

// CronSpec derives the five-field cron rule for a cadence.
func (f FireTime) CronSpec(cadence domain.Cadence) (string, error) {
	switch cadence {
	case domain.CadenceDaily:
		return fmt.Sprintf("%d %d * * *", f.Minute, f.Hour), nil
	case domain.CadenceWeekly:
		return fmt.Sprintf("%d %d * * %d", f.Minute, f.Hour, int(f.Weekday)), nil
	default:
		return "", fmt.Errorf("%w: unknown cadence %q", domain.ErrInvalidConfiguration, cadence)
	}
}

// Start launches the facility once; later calls do nothing.
func (s *ScheduleManager) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.facility.Start()
	s.started = true
	s.logger.Info("scheduler started", "hour", s.fireTime.Hour, "minute", s.fireTime.Minute, "weekday", s.fireTime.Weekday.String())
}

// Stop halts the facility and waits for running jobs or ctx, whichever ends first.
func (s *ScheduleManager) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.facility.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadAll registers a trigger for every stored configuration. Rows that cannot
// be registered are logged and skipped so one bad row does not block the rest.
func (s *ScheduleManager) LoadAll(ctx context.Context, store ports.ConfigurationLister, messenger ports.Messenger) error {
	configs, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("load configurations: %w", err)
	}

	for _, cfg := range configs {
		if err := s.Register(cfg, messenger); err != nil {
			s.logger.Error("skip configuration", "config_id", cfg.ID, "error", err)
		}
	}

	s.logger.Info("loaded scheduled jobs", "configurations", len(configs), "active", len(s.Keys()))
	return nil
}

// Register installs the trigger for cfg, replacing any existing one with the same key.
// The job runs the pipeline with the cfg and messenger given here.
func (s *ScheduleManager) Register(cfg domain.Configuration, messenger ports.Messenger) error {
	spec, err := s.fireTime.CronSpec(cfg.Cadence)
	if err != nil {
		return err
	}

	key := JobKey(cfg.ID)
	snapshot := cfg
	snapshot.AdditionalTopics = append([]string(nil), cfg.AdditionalTopics...)
	job := func() {
		if err := s.runner.Run(context.Background(), snapshot, messenger); err != nil {
			s.logger.Error("scheduled research update failed", "job", key, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.facility.Remove(old)
		delete(s.entries, key)
	}

	id, err := s.facility.Schedule(spec, job)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	s.entries[key] = id

	s.logger.Info("scheduled job", "job", key, "cadence", string(cfg.Cadence), "spec", spec,
		"topics", strings.Join(cfg.Topics(), ", "))
	return nil
}

// Unregister removes the trigger of a configuration if present.
func (s *ScheduleManager) Unregister(id int64) {
	key := JobKey(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		s.facility.Remove(entry)
		delete(s.entries, key)
		s.logger.Info("removed job", "job", key)
	}
}

// Active reports whether a configuration currently has a trigger.
func (s *ScheduleManager) Active(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[JobKey(id)]
	return ok
}

// Keys lists active trigger keys in sorted order.
func (s *ScheduleManager) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
