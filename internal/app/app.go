package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/infrastructure/jira"
	"ResearchDigest/internal/infrastructure/llm"
	"ResearchDigest/internal/infrastructure/parser"
	"ResearchDigest/internal/infrastructure/scheduler"
	slackbot "ResearchDigest/internal/infrastructure/slack"
	"ResearchDigest/internal/infrastructure/storage"
	"ResearchDigest/internal/logging"
	"ResearchDigest/internal/ports"
	"ResearchDigest/internal/scanner"
	"ResearchDigest/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLRepository
	pipeline  *usecase.Pipeline
	schedules *usecase.ScheduleManager
	configs   *usecase.ConfigService
	messenger ports.Messenger
	tickets   ports.TicketSource
	api       *slack.Client
	socket    *socketmode.Client
}

// New opens the store and builds every component. A store that cannot be
// opened is returned as an error; the caller treats it as fatal.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open configuration store: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivScanner(nil, baseLogger.With("component", "scanner.arxiv")))
	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	var summarizer ports.Summarizer
	if cfg.LLM.APIKey != "" {
		summarizer = llm.NewSummarizer(llm.NewChatGPTClient(cfg.LLM))
	} else {
		baseLogger.Warn("no LLM API key configured, summaries will fail")
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Summarizer:  summarizer,
		Logger:      baseLogger.With("component", "pipeline"),
		MaxPapers:   cfg.Digest.MaxPapers,
		ChunkBudget: cfg.Digest.ChunkBudget,
	})

	api, socket := slackbot.NewSocketClient(cfg.Slack.BotToken, cfg.Slack.AppToken, cfg.Slack.Debug,
		baseLogger.With("component", "slack.client"))
	messenger := slackbot.NewMessenger(api, baseLogger.With("component", "slack.messenger"))

	fireTime := usecase.FireTime{
		Hour:    cfg.Scheduler.Hour,
		Minute:  cfg.Scheduler.Minute,
		Weekday: cfg.Scheduler.WeekdayValue(),
	}
	facility := scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger.With("component", "cron"))
	schedules := usecase.NewScheduleManager(facility, pipeline, fireTime, baseLogger.With("component", "scheduler"))

	configs := usecase.NewConfigService(store, schedules, pipeline, messenger, baseLogger.With("component", "configs"))

	var tickets ports.TicketSource
	if cfg.Jira.Server != "" {
		client, err := jira.NewTicketClient(cfg.Jira, baseLogger.With("component", "jira"))
		if err != nil {
			baseLogger.Warn("jira integration disabled", "error", err)
		} else {
			tickets = client
		}
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		pipeline:  pipeline,
		schedules: schedules,
		configs:   configs,
		messenger: messenger,
		tickets:   tickets,
		api:       api,
		socket:    socket,
	}, nil
}

// Configs exposes the configuration use case to the CLI.
func (a *Application) Configs() *usecase.ConfigService {
	return a.configs
}

// Serve registers stored configurations, starts the scheduler and runs the
// Slack bot until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a.cfg.Slack.BotToken == "" || a.cfg.Slack.AppToken == "" {
		return errors.New("slack bot and app tokens are required to serve")
	}

	a.schedules.Start()
	if err := a.schedules.LoadAll(ctx, a.store, a.messenger); err != nil {
		return err
	}

	bot := slackbot.NewBot(a.configs, a.messenger, a.api, a.tickets, a.logger.With("component", "slack.bot"))
	a.logger.Info("research bot running")
	return bot.Run(ctx, a.socket)
}

// RunOnce executes one update for a stored configuration right away.
func (a *Application) RunOnce(ctx context.Context, id int64, channel string) error {
	return a.configs.RunNow(ctx, id, channel)
}

// EpicTopics suggests research topics from the tickets of a Jira epic.
func (a *Application) EpicTopics(ctx context.Context, epicKey string) ([]string, error) {
	if a.tickets == nil {
		return nil, errors.New("jira integration is not configured")
	}
	tickets, err := a.tickets.EpicTickets(ctx, epicKey)
	if err != nil {
		return nil, err
	}
	return jira.ExtractTopics(tickets), nil
}

// Close stops the scheduler, waiting for running updates, and closes the store.
func (a *Application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := a.schedules.Stop(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := a.store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close store: %w", err))
	}
	return result.ErrorOrNil()
}
