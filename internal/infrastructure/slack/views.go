package slack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"ResearchDigest/internal/domain"
)

// ConfigCallbackID identifies submissions of the configuration modal.
const ConfigCallbackID = "research_config"

const (
	blockFrequency        = "frequency"
	actionFrequency       = "frequency_select"
	blockTimeRange        = "time_range"
	actionTimeRange       = "time_range_select"
	blockMainTopic        = "main_topic"
	actionMainTopic       = "topic_input"
	blockAdditionalTopics = "additional_topics"
	actionAdditional      = "additional_topics_input"
	blockChannel          = "channel"
	actionChannel         = "channel_select"
)

// Home tab buttons.
const (
	ActionOpenConfig = "open_config_modal"
	ActionTestUpdate = "trigger_test_update"
)

var errInvalidTimeRange = fmt.Errorf("%w: time range is not a number of days", domain.ErrInvalidConfiguration)

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func option(value, label string) *slack.OptionBlockObject {
	return slack.NewOptionBlockObject(value, plain(label), nil)
}

// ConfigModal is the form opened by the configure command.
func ConfigModal() slack.ModalViewRequest {
	frequency := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select frequency"), actionFrequency,
		option(string(domain.CadenceDaily), "Daily"),
		option(string(domain.CadenceWeekly), "Weekly"),
	)
	timeRange := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select time range"), actionTimeRange,
		option("7", "Past week"),
		option("30", "Past month"),
	)

	additional := slack.NewPlainTextInputBlockElement(nil, actionAdditional)
	additional.Multiline = true
	additionalBlock := slack.NewInputBlock(blockAdditionalTopics, plain("Additional Topics (One per line)"),
		plain("Enter additional topics, one per line"), additional)
	additionalBlock.Optional = true

	channel := slack.NewOptionsSelectBlockElement(slack.OptTypeChannels, plain("Select a channel"), actionChannel)

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: ConfigCallbackID,
		Title:      plain("Configure Research Bot"),
		Submit:     plain("Submit"),
		Close:      plain("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(blockFrequency, plain("Update Frequency"), nil, frequency),
			slack.NewInputBlock(blockTimeRange, plain("Paper Time Range (days)"), nil, timeRange),
			slack.NewInputBlock(blockMainTopic, plain("Main Research Topic"), nil,
				slack.NewPlainTextInputBlockElement(nil, actionMainTopic)),
			additionalBlock,
			slack.NewInputBlock(blockChannel, plain("Post Updates To"), nil, channel),
		}},
	}
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// HomeTabView is published to a user's App Home when they open it.
func HomeTabView() slack.HomeTabViewRequest {
	configure := slack.NewButtonBlockElement(ActionOpenConfig, "configure",
		slack.NewTextBlockObject(slack.PlainTextType, ":gear: Configure Bot", true, false))
	test := slack.NewButtonBlockElement(ActionTestUpdate, "test_update",
		slack.NewTextBlockObject(slack.PlainTextType, ":mag: Test Update", true, false))

	return slack.HomeTabViewRequest{
		Type: slack.VTHomeTab,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, ":microscope: Research Update Bot", true, false)),
			slack.NewSectionBlock(mrkdwn("*Welcome to your research assistant!*\nI track arXiv papers and deliver curated updates to your Slack channels."), nil, nil),
			slack.NewDividerBlock(),
			slack.NewSectionBlock(mrkdwn(":sparkles: *Key Features*\n• Daily or weekly research digests\n• Multi-topic monitoring\n• LLM-powered summaries"), nil, nil),
			slack.NewActionBlock("home_actions", configure, test),
			slack.NewDividerBlock(),
			slack.NewSectionBlock(mrkdwn(":blue_book: *Getting Started*\n1. Use `"+CommandConfigure+"` to set up your first monitor\n"+
				"2. Specify your research topics (e.g. `LLM`, `Diffusion Models`)\n3. Choose update frequency and channel"), nil, nil),
			slack.NewSectionBlock(mrkdwn(":wrench: *Commands*\n`"+CommandConfigure+"` - Set up new monitoring\n`"+
				CommandTest+"` - Trigger immediate update\n`"+CommandList+"` - Show active configurations\n`"+
				CommandDelete+"` - Remove a configuration"), nil, nil),
		}},
	}
}

// ParseSubmission maps the modal state to an unsaved configuration.
func ParseSubmission(values map[string]map[string]slack.BlockAction) (domain.Configuration, error) {
	days, err := strconv.Atoi(strings.TrimSpace(values[blockTimeRange][actionTimeRange].SelectedOption.Value))
	if err != nil || days <= 0 {
		return domain.Configuration{}, errInvalidTimeRange
	}

	cadence, err := domain.ParseCadence(values[blockFrequency][actionFrequency].SelectedOption.Value)
	if err != nil {
		return domain.Configuration{}, err
	}

	cfg := domain.Configuration{
		Cadence:          cadence,
		Lookback:         domain.LookbackDays(days),
		Topic:            strings.TrimSpace(values[blockMainTopic][actionMainTopic].Value),
		AdditionalTopics: domain.SplitTopics(values[blockAdditionalTopics][actionAdditional].Value),
		Channel:          values[blockChannel][actionChannel].SelectedChannel,
	}
	if err := cfg.Validate(); err != nil {
		return domain.Configuration{}, err
	}
	return cfg, nil
}
