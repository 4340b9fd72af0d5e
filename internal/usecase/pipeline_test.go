package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
)

func scenarioConfig() domain.Configuration {
	return domain.Configuration{
		ID:               1,
		Cadence:          domain.CadenceDaily,
		Lookback:         domain.LookbackDays(7),
		Topic:            "LLM",
		AdditionalTopics: []string{"RAG"},
		Channel:          "C123",
	}
}

func makePapers(n int) []domain.Paper {
	papers := make([]domain.Paper, n)
	for i := range papers {
		papers[i] = domain.Paper{
			ExternalID:  fmt.Sprintf("arXiv:2510.%05d", i),
			Title:       fmt.Sprintf("Paper %d", i),
			PublishedAt: time.Now().UTC(),
		}
	}
	return papers
}

func TestPipelineRunDeliversDigest(t *testing.T) {
	t.Parallel()

	source := &fakeSource{papers: makePapers(2)}
	summarizer := &fakeSummarizer{digest: "X"}
	messenger := &fakeMessenger{}

	p := NewPipeline(PipelineDeps{Source: source, Summarizer: summarizer})
	require.NoError(t, p.Run(context.Background(), scenarioConfig(), messenger))

	require.Len(t, source.calls, 1)
	assert.Equal(t, []string{"LLM", "RAG"}, source.calls[0].topics)
	assert.Equal(t, 7, source.calls[0].days)
	assert.Equal(t, 1, summarizer.calls)

	posts := messenger.snapshot()
	require.Len(t, posts, 1)
	assert.Equal(t, "C123", posts[0].channel)

	sections := posts[0].msg.Sections
	require.Len(t, sections, 3)
	assert.Equal(t, domain.SectionHeader, sections[0].Kind)
	assert.Contains(t, sections[0].Text, "LLM, RAG")
	assert.Equal(t, domain.SectionText, sections[1].Kind)
	assert.Contains(t, sections[1].Text, "X")
	assert.Equal(t, domain.SectionContext, sections[2].Kind)
	assert.Contains(t, sections[2].Text, "7 days")
	assert.Contains(t, sections[2].Text, "2 papers found")
	assert.NotEmpty(t, posts[0].msg.Text)
}

func TestPipelineRunNoPapers(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Lookback = domain.LookbackDays(30)
	summarizer := &fakeSummarizer{digest: "unused"}
	messenger := &fakeMessenger{}

	p := NewPipeline(PipelineDeps{Source: &fakeSource{}, Summarizer: summarizer})
	require.NoError(t, p.Run(context.Background(), cfg, messenger))

	assert.Zero(t, summarizer.calls)
	posts := messenger.snapshot()
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].msg.Sections)
	assert.Contains(t, posts[0].msg.Text, "30")
	assert.Contains(t, posts[0].msg.Text, "LLM, RAG")
}

func TestPipelineRunSearchErrorIsTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	summarizer := &fakeSummarizer{digest: "unused"}
	messenger := &fakeMessenger{}

	p := NewPipeline(PipelineDeps{Source: &fakeSource{err: domain.ErrSearch}, Summarizer: summarizer})
	require.NoError(t, p.Run(context.Background(), scenarioConfig(), messenger))

	assert.Zero(t, summarizer.calls)
	posts := messenger.snapshot()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].msg.Text, "No new research papers found")
}

func TestPipelineRunInvalidLookback(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Lookback = "abc"
	source := &fakeSource{papers: makePapers(1)}
	messenger := &fakeMessenger{}

	p := NewPipeline(PipelineDeps{Source: source, Summarizer: &fakeSummarizer{}})
	err := p.Run(context.Background(), cfg, messenger)

	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Empty(t, source.calls)
	posts := messenger.snapshot()
	require.Len(t, posts, 1)
	assert.Equal(t, "C123", posts[0].channel)
	assert.Contains(t, posts[0].msg.Text, "invalid configuration")
	assert.Contains(t, posts[0].msg.Text, "abc")
}

func TestPipelineRunNoTopics(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Topic = ""
	cfg.AdditionalTopics = nil
	source := &fakeSource{}
	messenger := &fakeMessenger{}

	err := NewPipeline(PipelineDeps{Source: source}).Run(context.Background(), cfg, messenger)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Empty(t, source.calls)
	assert.Len(t, messenger.snapshot(), 1)
}

func TestPipelineRunSummarizationFailurePostsFallback(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{papers: makePapers(3)},
		Summarizer: &fakeSummarizer{err: errors.New("model overloaded")},
	})

	err := p.Run(context.Background(), scenarioConfig(), messenger)
	require.ErrorIs(t, err, domain.ErrSummarization)

	posts := messenger.snapshot()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].msg.Text, "Error generating research summary")
	assert.Contains(t, posts[0].msg.Text, "model overloaded")
}

func TestPipelineRunCapsSummarizedPapers(t *testing.T) {
	t.Parallel()

	summarizer := &fakeSummarizer{digest: "digest"}
	messenger := &fakeMessenger{}
	p := NewPipeline(PipelineDeps{Source: &fakeSource{papers: makePapers(40)}, Summarizer: summarizer})

	require.NoError(t, p.Run(context.Background(), scenarioConfig(), messenger))
	assert.Len(t, summarizer.got, 15)

	posts := messenger.snapshot()
	require.Len(t, posts, 1)
	footer := posts[0].msg.Sections[len(posts[0].msg.Sections)-1]
	assert.Contains(t, footer.Text, "40 papers found")
}

func TestPipelineRunDeliveryFailure(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{err: errors.New("channel_not_found")}
	p := NewPipeline(PipelineDeps{Source: &fakeSource{papers: makePapers(1)}, Summarizer: &fakeSummarizer{digest: "d"}})

	err := p.Run(context.Background(), scenarioConfig(), messenger)
	require.ErrorIs(t, err, domain.ErrDelivery)
	assert.Len(t, messenger.snapshot(), 1, "delivery is not retried")
}

func TestPipelineRunSplitsLongDigest(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, fmt.Sprintf(":page_facing_up: <https://arxiv.org/pdf/2510.%05d|Paper %d> %s", i, i, strings.Repeat("x", 60)))
	}
	digest := strings.Join(lines, "\n")

	messenger := &fakeMessenger{}
	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{papers: makePapers(5)},
		Summarizer: &fakeSummarizer{digest: digest},
	})
	require.NoError(t, p.Run(context.Background(), scenarioConfig(), messenger))

	sections := messenger.snapshot()[0].msg.Sections
	assert.Greater(t, len(sections), 3)
	assert.True(t, strings.HasPrefix(sections[1].Text, "*Part 1:*\n"))
	assert.True(t, strings.HasPrefix(sections[2].Text, "*Part 2:*\n"))
}

func TestPipelineRunWithoutMessenger(t *testing.T) {
	t.Parallel()

	err := NewPipeline(PipelineDeps{}).Run(context.Background(), scenarioConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrDelivery)
}
