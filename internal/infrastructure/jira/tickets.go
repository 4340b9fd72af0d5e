package jira

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// minTopicWordLength is the shortest summary word that counts as a topic candidate.
const minTopicWordLength = 6

// ErrInvalidEpicKey is returned for keys that are not of the PROJECT-123 form.
var ErrInvalidEpicKey = errors.New("invalid epic key")

var epicKeyExpr = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-\d+$`)

// TicketClient reads epic tickets from a Jira server.
type TicketClient struct {
	client *gojira.Client
	logger *slog.Logger
}

var _ ports.TicketSource = (*TicketClient)(nil)

// NewTicketClient authenticates with basic auth (user + API token).
func NewTicketClient(cfg config.JiraConfig, log *slog.Logger) (*TicketClient, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("jira server is not configured")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	tp := gojira.BasicAuthTransport{
		Username: cfg.User,
		Password: cfg.APIToken,
	}
	httpClient := tp.Client()
	httpClient.Timeout = 20 * time.Second

	return newTicketClient(httpClient, cfg.Server, log)
}

func newTicketClient(httpClient *http.Client, server string, log *slog.Logger) (*TicketClient, error) {
	client, err := gojira.NewClient(httpClient, server)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	return &TicketClient{client: client, logger: log}, nil
}

// EpicTickets returns every issue whose parent or epic link is epicKey.
func (c *TicketClient) EpicTickets(ctx context.Context, epicKey string) ([]domain.Ticket, error) {
	epicKey = strings.TrimSpace(epicKey)
	if !epicKeyExpr.MatchString(epicKey) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEpicKey, epicKey)
	}

	jql := fmt.Sprintf(`parent = %s OR "Epic Link" = %s`, epicKey, epicKey)
	opts := &gojira.SearchOptions{
		MaxResults: 50,
		Fields:     []string{"summary", "description", "status", "labels"},
	}

	var tickets []domain.Ticket
	err := c.client.Issue.SearchPagesWithContext(ctx, jql, opts, func(issue gojira.Issue) error {
		tickets = append(tickets, toTicket(issue))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search epic %s: %w", epicKey, err)
	}

	c.logger.Info("fetched epic tickets", "epic", epicKey, "count", len(tickets))
	return tickets, nil
}

func toTicket(issue gojira.Issue) domain.Ticket {
	ticket := domain.Ticket{Key: issue.Key}
	if issue.Fields == nil {
		return ticket
	}
	ticket.Summary = issue.Fields.Summary
	ticket.Description = issue.Fields.Description
	ticket.Labels = append([]string(nil), issue.Fields.Labels...)
	if issue.Fields.Status != nil {
		ticket.Status = issue.Fields.Status.Name
	}
	return ticket
}

// ExtractTopics suggests research topics from ticket labels and from the
// longer words of ticket summaries. The result is deduplicated and sorted.
func ExtractTopics(tickets []domain.Ticket) []string {
	seen := map[string]struct{}{}
	for _, ticket := range tickets {
		for _, label := range ticket.Labels {
			if label = strings.TrimSpace(label); label != "" {
				seen[label] = struct{}{}
			}
		}
		for _, word := range strings.Fields(strings.ToLower(ticket.Summary)) {
			if len([]rune(word)) >= minTopicWordLength {
				seen[word] = struct{}{}
			}
		}
	}

	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
