package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ResearchDigest/internal/domain"
)

const (
	// DefaultChunkBudget keeps each section well under Slack's 3000 character limit.
	DefaultChunkBudget = 2500
	// headerLimit is Slack's plain_text cap for header blocks.
	headerLimit = 150
)

// ChunkLines splits text into chunks of at most budget characters, cutting only
// between lines. A single line longer than budget is the one exception and is
// cut at rune boundaries.
func ChunkLines(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkBudget
	}

	var (
		chunks  []string
		current []string
		length  int
	)
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
		}
		current, length = nil, 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if lineLen > budget {
			flush()
			chunks = append(chunks, splitRunes(line, budget)...)
			continue
		}

		added := lineLen
		if len(current) > 0 {
			added++ // joining newline
		}
		if length+added > budget {
			flush()
			added = lineLen
		}
		current = append(current, line)
		length += added
	}
	flush()

	return chunks
}

func splitRunes(line string, budget int) []string {
	runes := []rune(line)
	parts := make([]string, 0, len(runes)/budget+1)
	for start := 0; start < len(runes); start += budget {
		end := min(start+budget, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// BuildDigestMessage assembles the header, the digest parts and the metadata footer.
func BuildDigestMessage(digest string, topics []string, lookbackDays, paperCount, budget int) domain.Message {
	sections := []domain.Section{{
		Kind: domain.SectionHeader,
		Text: truncate(fmt.Sprintf(":microscope: Latest Research in %s", strings.Join(topics, ", ")), headerLimit),
	}}

	for i, chunk := range ChunkLines(digest, budget) {
		sections = append(sections, domain.Section{
			Kind: domain.SectionText,
			Text: fmt.Sprintf("*Part %d:*\n%s", i+1, chunk),
		})
	}

	sections = append(sections, domain.Section{
		Kind: domain.SectionContext,
		Text: fmt.Sprintf(":clock3: Papers from last %d days | :1234: %d papers found", lookbackDays, paperCount),
	})

	return domain.Message{Text: "Research Update", Sections: sections}
}

// NoPapersMessage is posted when a search comes back empty.
func NoPapersMessage(topics []string, lookbackDays int) domain.Message {
	return domain.PlainMessage(fmt.Sprintf("No new research papers found for topics: %s in the past %d days.",
		strings.Join(topics, ", "), lookbackDays))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
