package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

type searchCall struct {
	topics []string
	days   int
}

type fakeSource struct {
	papers []domain.Paper
	err    error
	calls  []searchCall
}

func (f *fakeSource) Search(_ context.Context, topics []string, days int) ([]domain.Paper, error) {
	f.calls = append(f.calls, searchCall{topics: append([]string(nil), topics...), days: days})
	return f.papers, f.err
}

type fakeSummarizer struct {
	digest string
	err    error
	calls  int
	got    []domain.Paper
}

func (f *fakeSummarizer) Summarize(_ context.Context, papers []domain.Paper, _ []string) (string, error) {
	f.calls++
	f.got = papers
	return f.digest, f.err
}

type post struct {
	channel string
	msg     domain.Message
}

type fakeMessenger struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (f *fakeMessenger) Post(_ context.Context, channel string, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{channel: channel, msg: msg})
	return f.err
}

func (f *fakeMessenger) snapshot() []post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]post(nil), f.posts...)
}

type fakeJob struct {
	spec string
	run  func()
}

// fakeFacility records triggers instead of firing them on a clock.
type fakeFacility struct {
	mu      sync.Mutex
	next    ports.TriggerID
	jobs    map[ports.TriggerID]fakeJob
	starts  int
	stopped bool
	failOn  string
}

func newFakeFacility() *fakeFacility {
	return &fakeFacility{jobs: map[ports.TriggerID]fakeJob{}}
}

func (f *fakeFacility) Schedule(spec string, job func()) (ports.TriggerID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && f.failOn == spec {
		return 0, errors.New("rejected spec")
	}
	f.next++
	f.jobs[f.next] = fakeJob{spec: spec, run: job}
	return f.next, nil
}

func (f *fakeFacility) Remove(id ports.TriggerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
}

func (f *fakeFacility) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeFacility) Stop() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// fireAll runs every registered job once, as a clock tick matching all specs would.
func (f *fakeFacility) fireAll() {
	f.mu.Lock()
	ids := make([]int, 0, len(f.jobs))
	for id := range f.jobs {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	jobs := make([]fakeJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, f.jobs[ports.TriggerID(id)])
	}
	f.mu.Unlock()

	for _, job := range jobs {
		job.run()
	}
}

func (f *fakeFacility) specs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var specs []string
	for _, job := range f.jobs {
		specs = append(specs, job.spec)
	}
	sort.Strings(specs)
	return specs
}

type runCall struct {
	cfg       domain.Configuration
	messenger ports.Messenger
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	err   error
}

func (f *fakeRunner) Run(_ context.Context, cfg domain.Configuration, messenger ports.Messenger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{cfg: cfg, messenger: messenger})
	return f.err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memoryStore is an in-memory ConfigurationStore with never-reused ids.
type memoryStore struct {
	mu      sync.Mutex
	lastID  int64
	rows    map[int64]domain.Configuration
	failErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[int64]domain.Configuration{}}
}

func (m *memoryStore) Create(_ context.Context, cfg domain.Configuration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	m.lastID++
	cfg.ID = m.lastID
	m.rows[cfg.ID] = cfg
	return cfg.ID, nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.rows[id]
	if !ok {
		return domain.Configuration{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return cfg, nil
}

func (m *memoryStore) List(_ context.Context) ([]domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	ids := make([]int, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]domain.Configuration, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.rows[int64(id)])
	}
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, id int64, cfg domain.Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	cfg.ID = id
	cfg.CreatedAt = old.CreatedAt
	m.rows[id] = cfg
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	delete(m.rows, id)
	return nil
}
