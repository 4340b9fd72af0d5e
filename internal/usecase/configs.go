package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// ConfigService is the entry point of the command surfaces: it keeps the
// store and the schedule manager in step.
type ConfigService struct {
	store     ports.ConfigurationStore
	schedules *ScheduleManager
	runner    Runner
	messenger ports.Messenger
	logger    *slog.Logger
}

// NewConfigService wires the store, triggers and the delivery client handed to new triggers.
func NewConfigService(store ports.ConfigurationStore, schedules *ScheduleManager, runner Runner, messenger ports.Messenger, log *slog.Logger) *ConfigService {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ConfigService{
		store:     store,
		schedules: schedules,
		runner:    runner,
		messenger: messenger,
		logger:    log,
	}
}

// Create validates and persists a new configuration, then registers its trigger.
// Every submission creates a new row. If only the trigger fails, the saved
// configuration is returned with an error wrapping domain.ErrNotScheduled.
func (s *ConfigService) Create(ctx context.Context, cfg domain.Configuration) (domain.Configuration, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Configuration{}, err
	}

	id, err := s.store.Create(ctx, cfg)
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("save configuration: %w", err)
	}
	cfg.ID = id
	s.logger.Info("saved configuration", "config_id", id)

	if err := s.register(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Update replaces all fields of an existing configuration and re-registers its trigger.
func (s *ConfigService) Update(ctx context.Context, id int64, cfg domain.Configuration) (domain.Configuration, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Configuration{}, err
	}

	if err := s.store.Update(ctx, id, cfg); err != nil {
		return domain.Configuration{}, fmt.Errorf("update configuration %d: %w", id, err)
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("reload configuration %d: %w", id, err)
	}
	s.logger.Info("updated configuration", "config_id", id)

	if err := s.register(updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete removes the configuration and its trigger.
func (s *ConfigService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete configuration %d: %w", id, err)
	}
	if s.schedules != nil {
		s.schedules.Unregister(id)
	}
	s.logger.Info("deleted configuration", "config_id", id)
	return nil
}

// Get loads one configuration.
func (s *ConfigService) Get(ctx context.Context, id int64) (domain.Configuration, error) {
	return s.store.Get(ctx, id)
}

// List returns all configurations.
func (s *ConfigService) List(ctx context.Context) ([]domain.Configuration, error) {
	return s.store.List(ctx)
}

// RunNow runs the pipeline for a stored configuration immediately. A non-empty
// channel overrides where the digest goes.
func (s *ConfigService) RunNow(ctx context.Context, id int64, channel string) error {
	cfg, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if channel != "" {
		cfg.Channel = channel
	}
	return s.runner.Run(ctx, cfg, s.messenger)
}

// RunTest is the on-demand test command: it picks the first stored
// configuration, whichever channel it belongs to, and delivers to the
// invoking channel. Pipeline failures are already reported in that channel,
// so only failures to start the run are returned.
func (s *ConfigService) RunTest(ctx context.Context, channel string) error {
	configs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list configurations: %w", err)
	}

	if len(configs) == 0 {
		return s.notify(ctx, channel, "No configurations found. Please set up a configuration first using /configure-research-bot")
	}

	cfg := configs[0]
	if err := s.notify(ctx, channel, fmt.Sprintf("Running test research update using configuration ID: %d...", cfg.ID)); err != nil {
		return err
	}

	cfg.Channel = channel
	if err := s.runner.Run(ctx, cfg, s.messenger); err != nil {
		s.logger.Error("test research update failed", "config_id", cfg.ID, "error", err)
	}
	return nil
}

func (s *ConfigService) register(cfg domain.Configuration) error {
	if s.schedules == nil {
		return nil
	}
	if err := s.schedules.Register(cfg, s.messenger); err != nil {
		return fmt.Errorf("%w: configuration %d: %v", domain.ErrNotScheduled, cfg.ID, err)
	}
	return nil
}

func (s *ConfigService) notify(ctx context.Context, channel, text string) error {
	if s.messenger == nil {
		return fmt.Errorf("%w: no messenger configured", domain.ErrDelivery)
	}
	if err := s.messenger.Post(ctx, channel, domain.PlainMessage(text)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}
