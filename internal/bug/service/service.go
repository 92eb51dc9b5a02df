package service

import (
	"context"
	"errors"

	"github.com/bugtracker/bug-service/internal/bug"
	"github.com/bugtracker/bug-service/internal/bug/repository"
	"github.com/bugtracker/bug-service/internal/events"
	"github.com/bugtracker/bug-service/pkg/logger"
	"github.com/bugtracker/bug-service/pkg/metrics"
)

// Service defines the bug record operations used by the handler layer. Every
// error it returns is a *ValidationError, ErrNotFound or an *InternalError.
type Service interface {
	List(ctx context.Context) ([]*bug.Bug, error)
	Get(ctx context.Context, id string) (*bug.Bug, error)
	Create(ctx context.Context, in bug.Input) (*bug.Bug, error)
	Update(ctx context.Context, id string, in bug.Input) (*bug.Bug, error)
	Delete(ctx context.Context, id string) error
}

// Repository is the store the service persists through. Implementations must
// make FindByIDAndUpdate and FindByIDAndDelete atomic and return
// repository.ErrNotFound, repository.ErrInvalidID or *repository.SchemaError
// for the corresponding conditions.
type Repository interface {
	FindAll(ctx context.Context) ([]*bug.Bug, error)
	FindByID(ctx context.Context, id string) (*bug.Bug, error)
	Create(ctx context.Context, b *bug.Bug) (*bug.Bug, error)
	FindByIDAndUpdate(ctx context.Context, id string, in bug.Input) (*bug.Bug, error)
	FindByIDAndDelete(ctx context.Context, id string) (*bug.Bug, error)
}

// Publisher receives lifecycle events after successful mutations.
type Publisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

type Option func(*bugService)

// WithPublisher sends created/updated/deleted events to p. Publish failures
// are logged and never change the outcome of the mutation.
func WithPublisher(p Publisher) Option {
	return func(s *bugService) { s.publisher = p }
}

func NewService(repo Repository, opts ...Option) Service {
	s := &bugService{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type bugService struct {
	repo      Repository
	publisher Publisher
}

func (s *bugService) List(ctx context.Context) ([]*bug.Bug, error) {
	list, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, s.fail("list", err)
	}
	record("list", nil)
	return list, nil
}

func (s *bugService) Get(ctx context.Context, id string) (*bug.Bug, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	record("get", nil)
	return b, nil
}

func (s *bugService) Create(ctx context.Context, in bug.Input) (*bug.Bug, error) {
	if err := check(in); err != nil {
		record("create", err)
		return nil, err
	}
	b, err := s.repo.Create(ctx, bug.NewFromInput(bug.Normalize(in)))
	if err != nil {
		return nil, s.fail("create", err)
	}
	record("create", nil)
	s.publish(ctx, events.BugCreated, b)
	return b, nil
}

func (s *bugService) Update(ctx context.Context, id string, in bug.Input) (*bug.Bug, error) {
	if err := check(in); err != nil {
		record("update", err)
		return nil, err
	}
	b, err := s.repo.FindByIDAndUpdate(ctx, id, bug.Normalize(in))
	if err != nil {
		return nil, s.fail("update", err)
	}
	record("update", nil)
	s.publish(ctx, events.BugUpdated, b)
	return b, nil
}

func (s *bugService) Delete(ctx context.Context, id string) error {
	b, err := s.repo.FindByIDAndDelete(ctx, id)
	if err != nil {
		return s.fail("delete", err)
	}
	record("delete", nil)
	s.publish(ctx, events.BugDeleted, b)
	return nil
}

// check runs the required-field rules and the stored-document constraints,
// reporting all violations together.
func check(in bug.Input) error {
	errs := append(bug.Validate(in), bug.CheckConstraints(in)...)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// fail maps a store error onto the service taxonomy and records it.
func (s *bugService) fail(op string, err error) error {
	var schemaErr *repository.SchemaError
	var out error
	switch {
	case errors.As(err, &schemaErr):
		out = &ValidationError{Errors: schemaErr.Violations}
	case errors.Is(err, repository.ErrNotFound):
		out = ErrNotFound
	default:
		out = &InternalError{Op: op + " bug", Err: err}
	}
	record(op, out)
	return out
}

func (s *bugService) publish(ctx context.Context, t events.Type, b *bug.Bug) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(t, b)); err != nil {
		logger.Warnf("bugs: event %s for %s not published: %v", t, b.ID, err)
	}
}

func record(op string, err error) {
	outcome := "ok"
	var ve *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		outcome = "invalid"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.BugOperations.WithLabelValues(op, outcome).Inc()
}
