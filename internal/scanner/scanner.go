package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ResearchDigest/internal/domain"
)

// ErrUnknownScanner is returned when a source names a strategy nobody registered.
var ErrUnknownScanner = errors.New("scanner is not registered")

// Request is one search against one configured source.
type Request struct {
	Topics     []string
	Since      time.Time
	SourceName string
	URL        string
	MaxResults int
	Options    map[string]string
}

// Scanner is a paper search strategy bound to a name used in config (e.g. "arxiv").
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Paper, error)
}

// Registry resolves strategy names, case-insensitively, to implementations.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]Scanner
}

func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a strategy; a later one with the same name wins.
func (r *Registry) Register(s Scanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[key(s.Name())] = s
}

func (r *Registry) Resolve(name string) (Scanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scanners[key(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownScanner, name, strings.Join(r.namesLocked(), ", "))
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
