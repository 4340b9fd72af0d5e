package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
	"ResearchDigest/internal/scanner"
)

// StrategySource implements PaperSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.PaperSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
		now:      time.Now,
	}
}

// Search runs every configured source and keeps papers published strictly
// after now minus the lookback window, compared in UTC.
func (s *StrategySource) Search(ctx context.Context, topics []string, lookbackDays int) ([]domain.Paper, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: scanner registry is not configured", domain.ErrSearch)
	}

	cutoff := s.now().UTC().AddDate(0, 0, -lookbackDays)
	s.debug("search", "sources", len(s.sources), "topics", strings.Join(topics, ", "), "cutoff", cutoff.Format(time.RFC3339))

	var (
		aggregated []domain.Paper
		seen       = map[string]struct{}{}
	)
	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return nil, fmt.Errorf("%w: source %s: %v", domain.ErrSearch, src.Name, err)
		}

		req := scanner.Request{
			Topics:     topics,
			Since:      cutoff,
			SourceName: src.Name,
			URL:        src.URL,
			MaxResults: src.MaxResults,
			Options:    src.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: scan source %s: %v", domain.ErrSearch, src.Name, err)
		}

		kept := 0
		for _, paper := range FilterSince(results, cutoff) {
			key := paperKey(paper)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			aggregated = append(aggregated, paper)
			kept++
		}
		s.debug("source produced papers", "source", src.Name, "scanned", len(results), "kept", kept)
	}

	s.debug("strategy source done", "total_papers", len(aggregated))
	return aggregated, nil
}

// FilterSince keeps papers whose UTC publish time is strictly after cutoff.
func FilterSince(papers []domain.Paper, cutoff time.Time) []domain.Paper {
	cutoff = cutoff.UTC()
	kept := make([]domain.Paper, 0, len(papers))
	for _, paper := range papers {
		paper.PublishedAt = paper.PublishedAt.UTC()
		if paper.PublishedAt.After(cutoff) {
			kept = append(kept, paper)
		}
	}
	return kept
}

func paperKey(p domain.Paper) string {
	if p.ExternalID != "" {
		return p.ExternalID
	}
	if p.URL != "" {
		return p.URL
	}
	return p.Title
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
