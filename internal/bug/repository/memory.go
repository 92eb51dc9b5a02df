package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bugtracker/bug-service/internal/bug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory twin of MongoRepo used by unit tests and when no
// MongoDB URI is configured. Each operation runs under a single lock so
// find-and-update and find-and-delete are atomic, like their Mongo
// counterparts.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*entry
	seq   uint64
	now   func() time.Time
}

type entry struct {
	bug bug.Bug
	seq uint64
}

func NewMemoryRepo() *MemoryRepo {
	return NewMemoryRepoWithClock(time.Now)
}

// NewMemoryRepoWithClock is NewMemoryRepo with a caller-supplied time source.
func NewMemoryRepoWithClock(now func() time.Time) *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*entry), now: now}
}

func (m *MemoryRepo) FindAll(ctx context.Context) ([]*bug.Bug, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.store))
	for _, e := range m.store {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.bug.CreatedAt.Equal(b.bug.CreatedAt) {
			return a.bug.CreatedAt.After(b.bug.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]*bug.Bug, 0, len(entries))
	for _, e := range entries {
		b := e.bug
		out = append(out, &b)
	}
	return out, nil
}

func (m *MemoryRepo) FindByID(ctx context.Context, id string) (*bug.Bug, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	b := e.bug
	return &b, nil
}

func (m *MemoryRepo) Create(ctx context.Context, b *bug.Bug) (*bug.Bug, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v := violations(bug.InputOf(b)); len(v) > 0 {
		return nil, &SchemaError{Violations: v}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	created := *b
	created.ID = primitive.NewObjectID().Hex()
	created.CreatedAt = m.now().UTC()
	created.UpdatedAt = created.CreatedAt
	m.store[created.ID] = &entry{bug: created, seq: m.seq}
	return &created, nil
}

func (m *MemoryRepo) FindByIDAndUpdate(ctx context.Context, id string, in bug.Input) (*bug.Bug, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := e.bug
	next.Title = in.Title
	next.Description = in.Description
	next.ReportedBy = in.ReportedBy
	if in.Status != nil {
		next.Status = *in.Status
	}
	if in.Severity != nil {
		next.Severity = *in.Severity
	}
	if v := violations(bug.InputOf(&next)); len(v) > 0 {
		return nil, &SchemaError{Violations: v}
	}
	next.UpdatedAt = m.now().UTC()
	e.bug = next
	return &next, nil
}

func (m *MemoryRepo) FindByIDAndDelete(ctx context.Context, id string) (*bug.Bug, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.store, id)
	b := e.bug
	return &b, nil
}

// Ping always succeeds; it lets the memory store stand in for readiness checks.
func (m *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func checkID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w %q", ErrInvalidID, id)
	}
	return nil
}

func violations(in bug.Input) []string {
	return append(bug.Validate(in), bug.CheckConstraints(in)...)
}
