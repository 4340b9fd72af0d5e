package llm

import (
	"context"
	"fmt"
	"strings"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

const (
	maxPromptPapers  = 15
	maxAbstractChars = 500
)

// Completer is the single call the summarizer needs from a chat model.
type Completer interface {
	Complete(ctx context.Context, userMessage string) (string, error)
}

// Summarizer formats papers into a Slack-ready digest through a chat model.
type Summarizer struct {
	completer Completer
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer wraps a chat completions client.
func NewSummarizer(c Completer) *Summarizer {
	return &Summarizer{completer: c}
}

// Summarize asks the model for one link, contribution and significance line per paper.
func (s *Summarizer) Summarize(ctx context.Context, papers []domain.Paper, topics []string) (string, error) {
	if s == nil || s.completer == nil {
		return "", fmt.Errorf("%w: no language model configured", domain.ErrSummarization)
	}
	if len(papers) == 0 {
		return "", fmt.Errorf("%w: no papers to summarize", domain.ErrSummarization)
	}

	digest, err := s.completer.Complete(ctx, BuildPrompt(papers, topics))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSummarization, err)
	}

	digest = strings.TrimSpace(digest)
	if digest == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrSummarization)
	}
	return digest, nil
}

// BuildPrompt renders the user message for at most fifteen papers.
func BuildPrompt(papers []domain.Paper, topics []string) string {
	if len(papers) > maxPromptPapers {
		papers = papers[:maxPromptPapers]
	}
	topicsText := strings.Join(topics, ", ")

	entries := make([]string, 0, len(papers))
	for _, paper := range papers {
		entries = append(entries, fmt.Sprintf("Title: %s\nPDF URL: %s\nAbstract: %s...",
			paper.Title, paper.URL, truncateRunes(paper.Abstract, maxAbstractChars)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Format these papers about %s into a Slack message:\n\n", topicsText)
	b.WriteString(strings.Join(entries, "\n\n"))
	b.WriteString("\n\nStructure:\n")
	fmt.Fprintf(&b, ":books: *Recent Papers in %s*\n\n", topicsText)
	b.WriteString("For each paper:\n")
	b.WriteString(":page_facing_up: <{pdf_url}|{Title}>\n")
	b.WriteString(":pushpin: _Key Contribution_: [1-sentence summary]\n")
	b.WriteString(":mag: _Why It Matters_: [1-sentence significance]\n\n")
	b.WriteString("- Use :star: for important papers.\n")
	b.WriteString("- Replace {pdf_url} with the FULL URL from \"PDF URL\"\n")
	b.WriteString("- Replace {Title} with EXACT paper title\n")
	b.WriteString("- URLs MUST start with https://\n")
	b.WriteString("- Remove any markdown except the <URL|TEXT> format")
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
