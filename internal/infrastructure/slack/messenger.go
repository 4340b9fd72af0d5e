package slack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// Messenger posts domain messages through chat.postMessage.
type Messenger struct {
	client *slack.Client
	logger *slog.Logger
}

var _ ports.Messenger = (*Messenger)(nil)

// NewMessenger wraps an authenticated Web API client.
func NewMessenger(client *slack.Client, log *slog.Logger) *Messenger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Messenger{client: client, logger: log}
}

// Post sends msg to a channel id, or to a user id which Slack delivers as a DM.
func (m *Messenger) Post(ctx context.Context, channel string, msg domain.Message) error {
	if channel == "" {
		return fmt.Errorf("%w: empty channel", domain.ErrDelivery)
	}

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if blocks := Blocks(msg); len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}

	_, ts, err := m.client.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return fmt.Errorf("%w: post to %s: %v", domain.ErrDelivery, channel, err)
	}

	m.logger.Debug("message posted", "channel", channel, "ts", ts, "blocks", len(msg.Sections))
	return nil
}

// Blocks renders message sections as Block Kit blocks.
func Blocks(msg domain.Message) []slack.Block {
	blocks := make([]slack.Block, 0, len(msg.Sections))
	for _, section := range msg.Sections {
		switch section.Kind {
		case domain.SectionHeader:
			blocks = append(blocks, slack.NewHeaderBlock(
				slack.NewTextBlockObject(slack.PlainTextType, section.Text, true, false)))
		case domain.SectionContext:
			blocks = append(blocks, slack.NewContextBlock("",
				slack.NewTextBlockObject(slack.MarkdownType, section.Text, false, false)))
		default:
			blocks = append(blocks, slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, section.Text, false, false), nil, nil))
		}
	}
	return blocks
}
