package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ticketboss/internal/cache"
	"ticketboss/internal/database"
	"ticketboss/internal/models"
	"ticketboss/internal/repository"

	"github.com/stretchr/testify/require"
)

const testEventID = "node-meetup-2025"

func newTestDB(t *testing.T, totalSeats int) *database.DB {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.RunMigrations(ctx))

	seeded, err := db.SeedEvent(ctx, database.EventSeed{ID: testEventID, Name: "Node.js Meet-up", TotalSeats: totalSeats})
	require.NoError(t, err)
	require.True(t, seeded)

	return db
}

func newTestService(t *testing.T, totalSeats int) (*ReservationService, *database.DB, *fakePublisher) {
	t.Helper()

	db := newTestDB(t, totalSeats)
	pub := &fakePublisher{}
	svc := NewReservationService(db, repository.NewRepositories(db), testEventID, pub, nil, nil)
	return svc, db, pub
}

type publishedMessage struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.subject)
	}
	return out
}

type fakeCache struct {
	mu          sync.Mutex
	summaries   map[string]*models.EventSummary
	generations map[string]int64
	gets        int
	invalidated int

	// beforeSet runs at the start of SetSummary, outside the lock
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		summaries:   map[string]*models.EventSummary{},
		generations: map[string]int64{},
	}
}

func (c *fakeCache) SummaryGeneration(_ context.Context, eventID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[eventID], nil
}

func (c *fakeCache) GetSummary(_ context.Context, eventID string) (*models.EventSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.summaries[eventID]
	if !ok {
		return nil, cache.ErrMiss
	}
	cp := *s
	return &cp, nil
}

func (c *fakeCache) SetSummary(_ context.Context, summary *models.EventSummary, generation int64) error {
	if hook := c.beforeSet; hook != nil {
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[summary.EventID] != generation {
		return cache.ErrStale
	}
	cp := *summary
	c.summaries[summary.EventID] = &cp
	return nil
}

func (c *fakeCache) InvalidateSummary(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.generations[eventID]++
	delete(c.summaries, eventID)
	return nil
}

// memoryCounter is an in-process CounterStore that evaluates the
// conditional update under its own mutex, like a database row would.
type memoryCounter struct {
	mu        sync.Mutex
	available int
	version   int64
	exists    bool
}

func newMemoryCounter(available int) *memoryCounter {
	return &memoryCounter{available: available, exists: true}
}

func (m *memoryCounter) ReadCounter(_ context.Context, _ string) (*models.CounterState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return nil, nil
	}
	return &models.CounterState{AvailableSeats: m.available, Version: m.version}, nil
}

func (m *memoryCounter) CompareAndDecrement(_ context.Context, _ string, seats int, expectedVersion int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists || m.version != expectedVersion || m.available < seats {
		return false, nil
	}
	m.available -= seats
	m.version++
	return true, nil
}

func (m *memoryCounter) Increment(_ context.Context, _ string, seats int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return false, nil
	}
	m.available += seats
	m.version++
	return true, nil
}

// interleavingStore lets another writer commit between the read and the
// conditional update of every attempt.
type interleavingStore struct {
	CounterStore
}

func (s interleavingStore) ReadCounter(ctx context.Context, eventID string) (*models.CounterState, error) {
	state, err := s.CounterStore.ReadCounter(ctx, eventID)
	if err != nil || state == nil {
		return state, err
	}
	if _, err := s.CounterStore.Increment(ctx, eventID, 0); err != nil {
		return nil, err
	}
	return state, nil
}

type failingStore struct {
	CounterStore
}

var errStoreDown = errors.New("store down")

func (failingStore) CompareAndDecrement(context.Context, string, int, int64) (bool, error) {
	return false, errStoreDown
}
