package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/infrastructure/jira"
	"ResearchDigest/internal/ports"
)

// Slash commands served over socket mode.
const (
	CommandConfigure   = "/configure-research-bot"
	CommandTest        = "/test-research-update"
	CommandList        = "/list-research-configs"
	CommandDelete      = "/delete-research-config"
	CommandEpicTopics  = "/research-topics-from-epic"
	configureHintText  = "Please set up a configuration first using " + CommandConfigure
	invalidTimeRangeDM = "Invalid time range value. Please select a valid number of days."
)

// ConfigCommands is the configuration use case the bot drives.
type ConfigCommands interface {
	Create(ctx context.Context, cfg domain.Configuration) (domain.Configuration, error)
	List(ctx context.Context) ([]domain.Configuration, error)
	Delete(ctx context.Context, id int64) error
	RunTest(ctx context.Context, channel string) error
}

// ViewOpener opens modals and publishes home tabs; *slack.Client implements it.
type ViewOpener interface {
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
	PublishViewContext(ctx context.Context, userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error)
}

// Bot serves slash commands and modal submissions.
type Bot struct {
	commands  ConfigCommands
	messenger ports.Messenger
	views     ViewOpener
	tickets   ports.TicketSource
	logger    *slog.Logger
}

// NewBot wires the command handlers. tickets may be nil when Jira is not configured.
func NewBot(commands ConfigCommands, messenger ports.Messenger, views ViewOpener, tickets ports.TicketSource, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bot{
		commands:  commands,
		messenger: messenger,
		views:     views,
		tickets:   tickets,
		logger:    log,
	}
}

// Run listens on a socket-mode connection until ctx is done.
func (b *Bot) Run(ctx context.Context, client *socketmode.Client) error {
	go b.dispatch(ctx, client)

	if err := client.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("socket mode: %w", err)
	}
	return nil
}

func (b *Bot) dispatch(ctx context.Context, client *socketmode.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.Events:
			if !ok {
				return
			}
			b.handleEvent(ctx, client, evt)
		}
	}
}

func (b *Bot) handleEvent(ctx context.Context, client *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to slack")
	case socketmode.EventTypeConnected:
		b.logger.Info("connected to slack")
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack connection failed, retrying")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok || evt.Request == nil {
			return
		}
		client.Ack(*evt.Request)
		go b.HandleCommand(ctx, cmd)
	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok || evt.Request == nil {
			return
		}
		client.Ack(*evt.Request)
		switch {
		case callback.Type == slack.InteractionTypeViewSubmission && callback.View.CallbackID == ConfigCallbackID:
			go b.HandleSubmission(ctx, callback)
		case callback.Type == slack.InteractionTypeBlockActions:
			go b.HandleAction(ctx, callback)
		}
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || evt.Request == nil {
			return
		}
		client.Ack(*evt.Request)
		if apiEvent.Type != slackevents.CallbackEvent {
			return
		}
		if opened, ok := apiEvent.InnerEvent.Data.(*slackevents.AppHomeOpenedEvent); ok {
			go b.HandleHomeOpened(ctx, opened.User)
		}
	}
}

// HandleHomeOpened publishes the home tab for a user.
func (b *Bot) HandleHomeOpened(ctx context.Context, user string) {
	if _, err := b.views.PublishViewContext(ctx, user, HomeTabView(), ""); err != nil {
		b.logger.Error("publish home tab", "user", user, "error", err)
	}
}

// HandleAction runs the home tab buttons. A test update started there is
// delivered to the user's direct messages.
func (b *Bot) HandleAction(ctx context.Context, callback slack.InteractionCallback) {
	user := callback.User.ID
	log := b.logger.With("user", user)

	for _, action := range callback.ActionCallback.BlockActions {
		switch action.ActionID {
		case ActionOpenConfig:
			if _, err := b.views.OpenViewContext(ctx, callback.TriggerID, ConfigModal()); err != nil {
				log.Error("open configuration modal", "error", err)
			}
		case ActionTestUpdate:
			if err := b.commands.RunTest(ctx, user); err != nil {
				log.Error("test research update", "error", err)
				b.reply(ctx, log, user, fmt.Sprintf("Error running research update: %v", err))
			}
		default:
			log.Debug("ignoring block action", "action_id", action.ActionID)
		}
	}
}

// HandleCommand executes one slash command after it has been acknowledged.
func (b *Bot) HandleCommand(ctx context.Context, cmd slack.SlashCommand) {
	log := b.logger.With("command", cmd.Command, "user", cmd.UserID, "channel", cmd.ChannelID)
	log.Info("slash command received")

	switch cmd.Command {
	case CommandConfigure:
		if _, err := b.views.OpenViewContext(ctx, cmd.TriggerID, ConfigModal()); err != nil {
			log.Error("open configuration modal", "error", err)
		}
	case CommandTest:
		if err := b.commands.RunTest(ctx, cmd.ChannelID); err != nil {
			log.Error("test research update", "error", err)
			b.reply(ctx, log, cmd.ChannelID, fmt.Sprintf("Error running research update: %v", err))
		}
	case CommandList:
		b.reply(ctx, log, cmd.ChannelID, b.listText(ctx, log))
	case CommandDelete:
		b.reply(ctx, log, cmd.ChannelID, b.deleteText(ctx, log, cmd.Text))
	case CommandEpicTopics:
		b.reply(ctx, log, cmd.ChannelID, b.epicTopicsText(ctx, log, cmd.Text))
	default:
		log.Warn("unknown command")
	}
}

// HandleSubmission saves a submitted configuration and DMs the outcome to the submitter.
func (b *Bot) HandleSubmission(ctx context.Context, callback slack.InteractionCallback) {
	user := callback.User.ID
	log := b.logger.With("user", user)

	var values map[string]map[string]slack.BlockAction
	if callback.View.State != nil {
		values = callback.View.State.Values
	}

	cfg, err := ParseSubmission(values)
	if errors.Is(err, errInvalidTimeRange) {
		b.reply(ctx, log, user, invalidTimeRangeDM)
		return
	}
	if err == nil {
		cfg, err = b.commands.Create(ctx, cfg)
	}
	if errors.Is(err, domain.ErrNotScheduled) {
		log.Error("schedule configuration", "config_id", cfg.ID, "error", err)
		b.reply(ctx, log, user, fmt.Sprintf("Configuration %d was saved but could not be scheduled: %v", cfg.ID, err))
		return
	}
	if err != nil {
		log.Error("save configuration", "error", err)
		b.reply(ctx, log, user, fmt.Sprintf("Could not save configuration: %v", err))
		return
	}

	b.reply(ctx, log, user, fmt.Sprintf("Research bot configured successfully! Updates on topics: %s will be posted to <#%s> %s.",
		strings.Join(cfg.Topics(), ", "), cfg.Channel, cfg.Cadence))
}

func (b *Bot) listText(ctx context.Context, log *slog.Logger) string {
	configs, err := b.commands.List(ctx)
	if err != nil {
		log.Error("list configurations", "error", err)
		return fmt.Sprintf("Could not load configurations: %v", err)
	}
	if len(configs) == 0 {
		return "No configurations found. " + configureHintText
	}

	var sb strings.Builder
	sb.WriteString("*Research configurations:*")
	for _, cfg := range configs {
		fmt.Fprintf(&sb, "\n• `%d` %s, last %s days: %s → <#%s>",
			cfg.ID, cfg.Cadence, cfg.Lookback, strings.Join(cfg.Topics(), ", "), cfg.Channel)
	}
	return sb.String()
}

func (b *Bot) deleteText(ctx context.Context, log *slog.Logger, arg string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return fmt.Sprintf("Usage: %s <configuration id>", CommandDelete)
	}

	if err := b.commands.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("No configuration with ID %d.", id)
		}
		log.Error("delete configuration", "config_id", id, "error", err)
		return fmt.Sprintf("Could not delete configuration %d: %v", id, err)
	}
	return fmt.Sprintf("Deleted configuration %d; its scheduled updates are stopped.", id)
}

func (b *Bot) epicTopicsText(ctx context.Context, log *slog.Logger, arg string) string {
	if b.tickets == nil {
		return "Jira integration is not configured."
	}
	epic := strings.TrimSpace(arg)
	if epic == "" {
		return fmt.Sprintf("Usage: %s <epic key>", CommandEpicTopics)
	}

	tickets, err := b.tickets.EpicTickets(ctx, epic)
	if err != nil {
		log.Error("fetch epic tickets", "epic", epic, "error", err)
		return fmt.Sprintf("Could not fetch tickets for %s: %v", epic, err)
	}

	topics := jira.ExtractTopics(tickets)
	if len(topics) == 0 {
		return fmt.Sprintf("No topics found in epic %s.", epic)
	}
	return fmt.Sprintf("Suggested topics from %s (%d tickets):\n• %s", epic, len(tickets), strings.Join(topics, "\n• "))
}

func (b *Bot) reply(ctx context.Context, log *slog.Logger, channel, text string) {
	if err := b.messenger.Post(ctx, channel, domain.PlainMessage(text)); err != nil {
		log.Error("reply failed", "to", channel, "error", err)
	}
}

// NewSocketClient builds the Web API and socket-mode clients from the bot and app tokens.
func NewSocketClient(botToken, appToken string, debug bool, log *slog.Logger, opts ...slack.Option) (*slack.Client, *socketmode.Client) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	stdLog := slog.NewLogLogger(log.Handler(), slog.LevelDebug)

	opts = append([]slack.Option{
		slack.OptionAppLevelToken(appToken),
		slack.OptionDebug(debug),
		slack.OptionLog(stdLog),
	}, opts...)
	api := slack.New(botToken, opts...)

	return api, socketmode.New(api,
		socketmode.OptionDebug(debug),
		socketmode.OptionLog(stdLog),
	)
}
