package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// DefaultMaxPapers is how many papers reach the summarizer.
const DefaultMaxPapers = 15

// PipelineDeps wires all driven adapters into the update pipeline.
type PipelineDeps struct {
	Source      ports.PaperSource
	Summarizer  ports.Summarizer
	Logger      *slog.Logger
	MaxPapers   int
	ChunkBudget int
}

// Pipeline runs one research update for one configuration.
type Pipeline struct {
	source      ports.PaperSource
	summarizer  ports.Summarizer
	logger      *slog.Logger
	maxPapers   int
	chunkBudget int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxPapers := deps.MaxPapers
	if maxPapers <= 0 {
		maxPapers = DefaultMaxPapers
	}
	budget := deps.ChunkBudget
	if budget <= 0 {
		budget = DefaultChunkBudget
	}
	return &Pipeline{
		source:      deps.Source,
		summarizer:  deps.Summarizer,
		logger:      logger,
		maxPapers:   maxPapers,
		chunkBudget: budget,
	}
}

// Run searches, summarizes and delivers one digest to cfg.Channel.
// Every failure that can be tied to the channel is reported there; the
// returned error only informs the caller and is never fatal to the process.
func (p *Pipeline) Run(ctx context.Context, cfg domain.Configuration, messenger ports.Messenger) error {
	if messenger == nil {
		return fmt.Errorf("%w: no messenger for configuration %d", domain.ErrDelivery, cfg.ID)
	}

	log := p.logger.With("run_id", uuid.NewString(), "config_id", cfg.ID, "channel", cfg.Channel)

	topics := cfg.Topics()
	if len(topics) == 0 {
		err := fmt.Errorf("%w: configuration %d has no topics", domain.ErrInvalidConfiguration, cfg.ID)
		return p.fail(ctx, log, cfg.Channel, messenger, err)
	}
	topicsText := strings.Join(topics, ", ")
	log = log.With("topics", topicsText)

	days, err := cfg.Lookback.Days()
	if err != nil {
		return p.fail(ctx, log, cfg.Channel, messenger, err)
	}

	log.Info("running research update", "lookback_days", days)

	var papers []domain.Paper
	if p.source != nil {
		papers, err = p.source.Search(ctx, topics, days)
		if err != nil {
			log.Error("paper search failed, treating as no results", "error", err)
			papers = nil
		}
	}

	if len(papers) == 0 {
		log.Info("no relevant papers found")
		return p.deliver(ctx, log, cfg.Channel, messenger, NoPapersMessage(topics, days))
	}

	batch := papers
	if len(batch) > p.maxPapers {
		batch = batch[:p.maxPapers]
	}

	digest, err := p.summarize(ctx, batch, topics)
	if err != nil {
		log.Error("summarization failed", "error", err)
		content := fmt.Sprintf("Error generating research summary: %v", err)
		if deliverErr := p.deliver(ctx, log, cfg.Channel, messenger, domain.PlainMessage(content)); deliverErr != nil {
			return errors.Join(err, deliverErr)
		}
		return err
	}

	msg := BuildDigestMessage(digest, topics, days, len(papers), p.chunkBudget)
	if err := p.deliver(ctx, log, cfg.Channel, messenger, msg); err != nil {
		return err
	}

	log.Info("posted research update", "papers", len(papers), "sections", len(msg.Sections))
	return nil
}

func (p *Pipeline) summarize(ctx context.Context, papers []domain.Paper, topics []string) (string, error) {
	if p.summarizer == nil {
		return "", fmt.Errorf("%w: summarizer is not configured", domain.ErrSummarization)
	}
	digest, err := p.summarizer.Summarize(ctx, papers, topics)
	if err != nil {
		if !errors.Is(err, domain.ErrSummarization) {
			err = fmt.Errorf("%w: %v", domain.ErrSummarization, err)
		}
		return "", err
	}
	return digest, nil
}

// fail reports a pipeline-level error to the channel and returns it.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, channel string, messenger ports.Messenger, cause error) error {
	log.Error("research update failed", "error", cause)
	notice := domain.PlainMessage(fmt.Sprintf("Error generating research update: %v", cause))
	if err := p.deliver(ctx, log, channel, messenger, notice); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (p *Pipeline) deliver(ctx context.Context, log *slog.Logger, channel string, messenger ports.Messenger, msg domain.Message) error {
	if err := messenger.Post(ctx, channel, msg); err != nil {
		log.Error("failed to post to channel", "error", err)
		if !errors.Is(err, domain.ErrDelivery) {
			err = fmt.Errorf("%w: %v", domain.ErrDelivery, err)
		}
		return err
	}
	return nil
}
