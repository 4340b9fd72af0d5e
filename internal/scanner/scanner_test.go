package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
)

type namedScanner struct {
	name string
}

func (n namedScanner) Name() string { return n.name }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Paper, error) {
	return []domain.Paper{{Title: n.name}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedScanner{name: "arxiv"})

	got, err := reg.Resolve(" ArXiv ")
	require.NoError(t, err)
	assert.Equal(t, "arxiv", got.Name())

	_, err = reg.Resolve("ieee")
	require.ErrorIs(t, err, ErrUnknownScanner)
	assert.Contains(t, err.Error(), "known: arxiv")
}

func TestRegistryRegisterReplaces(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(namedScanner{name: "arxiv"})
	reg.Register(namedScanner{name: "ARXIV"})
	reg.Register(namedScanner{name: "biorxiv"})

	assert.Equal(t, []string{"arxiv", "biorxiv"}, reg.Names())
}
