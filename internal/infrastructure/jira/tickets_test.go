package jira

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
)

func TestExtractTopics(t *testing.T) {
	t.Parallel()

	tickets := []domain.Ticket{
		{Key: "AI-1", Summary: "Evaluate retrieval augmented generation", Labels: []string{"RAG", "llm"}},
		{Key: "AI-2", Summary: "Fix the Embedding cache", Labels: []string{"RAG"}},
		{Key: "AI-3"},
	}

	assert.Equal(t, []string{"RAG", "augmented", "embedding", "evaluate", "generation", "llm", "retrieval"},
		ExtractTopics(tickets))
	assert.Empty(t, ExtractTopics(nil))
}

func TestEpicTickets(t *testing.T) {
	t.Parallel()

	var gotJQL, gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		gotJQL = r.URL.Query().Get("jql")
		gotUser, _, _ = r.BasicAuth()

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"startAt":    0,
			"maxResults": 50,
			"total":      2,
			"issues": []map[string]any{
				{"key": "AI-7", "fields": map[string]any{
					"summary": "Benchmark reranking models",
					"status":  map[string]any{"name": "In Progress"},
					"labels":  []string{"search"},
				}},
				{"key": "AI-8", "fields": map[string]any{"summary": "Docs"}},
			},
		}))
	}))
	t.Cleanup(server.Close)

	client, err := NewTicketClient(config.JiraConfig{Server: server.URL, User: "bot@example.com", APIToken: "secret"}, nil)
	require.NoError(t, err)

	tickets, err := client.EpicTickets(context.Background(), "AI-1")
	require.NoError(t, err)

	assert.Equal(t, `parent = AI-1 OR "Epic Link" = AI-1`, gotJQL)
	assert.Equal(t, "bot@example.com", gotUser)
	require.Len(t, tickets, 2)
	assert.Equal(t, domain.Ticket{Key: "AI-7", Summary: "Benchmark reranking models", Status: "In Progress", Labels: []string{"search"}}, tickets[0])
	assert.Equal(t, "AI-8", tickets[1].Key)
	assert.Empty(t, tickets[1].Status)
}

func TestEpicTicketsRequiresKey(t *testing.T) {
	t.Parallel()

	client, err := NewTicketClient(config.JiraConfig{Server: "https://jira.example.com"}, nil)
	require.NoError(t, err)
	_, err = client.EpicTickets(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidEpicKey)
}

func TestEpicTicketsRejectsMalformedKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := newTicketClient(server.Client(), server.URL, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	for _, key := range []string{"AI-1 OR project = SECRET", "ai-1", "AI", "AI-", "1-AI", `AI-1"`} {
		_, err := client.EpicTickets(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidEpicKey, key)
	}
	assert.Zero(t, calls.Load())
}

func TestNewTicketClientRequiresServer(t *testing.T) {
	t.Parallel()

	_, err := NewTicketClient(config.JiraConfig{}, nil)
	assert.Error(t, err)
}
