package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bugtracker/bug-service/internal/bug"
	"github.com/bugtracker/bug-service/internal/bug/repository"
	"github.com/bugtracker/bug-service/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func stepClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestService(opts ...Option) Service {
	return NewService(repository.NewMemoryRepoWithClock(stepClock()), opts...)
}

func sampleInput() bug.Input {
	st, sev := bug.StatusOpen, bug.SeverityHigh
	return bug.Input{
		Title:       "Test Bug",
		Description: "This is a test bug description",
		ReportedBy:  "Test User",
		Status:      &st,
		Severity:    &sev,
	}
}

// failingRepo returns err from every call and counts calls.
type failingRepo struct {
	err   error
	calls int
}

func (f *failingRepo) FindAll(ctx context.Context) ([]*bug.Bug, error) {
	f.calls++
	return nil, f.err
}
func (f *failingRepo) FindByID(ctx context.Context, id string) (*bug.Bug, error) {
	f.calls++
	return nil, f.err
}
func (f *failingRepo) Create(ctx context.Context, b *bug.Bug) (*bug.Bug, error) {
	f.calls++
	return nil, f.err
}
func (f *failingRepo) FindByIDAndUpdate(ctx context.Context, id string, in bug.Input) (*bug.Bug, error) {
	f.calls++
	return nil, f.err
}
func (f *failingRepo) FindByIDAndDelete(ctx context.Context, id string) (*bug.Bug, error) {
	f.calls++
	return nil, f.err
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return p.err
}

func TestCreateThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.False(t, created.UpdatedAt.IsZero())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Bug", got.Title)
	assert.Equal(t, "This is a test bug description", got.Description)
	assert.Equal(t, bug.StatusOpen, got.Status)
	assert.Equal(t, bug.SeverityHigh, got.Severity)
	assert.Equal(t, "Test User", got.ReportedBy)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreate_AppliesDefaultsAndTrims(t *testing.T) {
	svc := newTestService()
	created, err := svc.Create(context.Background(), bug.Input{Title: "  T  ", Description: "D\n", ReportedBy: " R"})
	require.NoError(t, err)
	assert.Equal(t, "T", created.Title)
	assert.Equal(t, "D", created.Description)
	assert.Equal(t, "R", created.ReportedBy)
	assert.Equal(t, bug.StatusOpen, created.Status)
	assert.Equal(t, bug.SeverityMedium, created.Severity)
}

func TestCreate_ValidationFailureSkipsStore(t *testing.T) {
	repo := &failingRepo{err: errors.New("must not be called")}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), bug.Input{Title: " ", Description: "d"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{bug.MsgTitleRequired, bug.MsgReporterRequired}, ve.Errors)
	require.Zero(t, repo.calls)
}

func TestCreate_EnumViolationIsValidationError(t *testing.T) {
	in := sampleInput()
	st := bug.Status("closed")
	in.Status = &st

	_, err := newTestService().Create(context.Background(), in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{bug.MsgInvalidStatus}, ve.Errors)
}

func TestCreate_StoreSchemaErrorIsValidationError(t *testing.T) {
	repo := &failingRepo{err: &repository.SchemaError{Violations: []string{"Bug failed document validation"}}}
	_, err := NewService(repo).Create(context.Background(), sampleInput())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{"Bug failed document validation"}, ve.Errors)
}

func TestUpdate_SameValuesOnlyChangesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, bug.InputOf(created))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.Status, updated.Status)
	assert.Equal(t, created.Severity, updated.Severity)
	assert.Equal(t, created.ReportedBy, updated.ReportedBy)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdate_ReplacesSuppliedFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	st := bug.StatusResolved
	updated, err := svc.Update(ctx, created.ID, bug.Input{
		Title: "Updated Bug Title", Description: "new", ReportedBy: "someone", Status: &st,
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated Bug Title", updated.Title)
	assert.Equal(t, bug.StatusResolved, updated.Status)
	assert.Equal(t, bug.SeverityHigh, updated.Severity, "omitted severity keeps its stored value")

	// resolved -> open is allowed; there is no transition gate
	reopen := bug.StatusOpen
	in := bug.InputOf(updated)
	in.Status = &reopen
	reopened, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, bug.StatusOpen, reopened.Status)
}

func TestUpdate_RequiresFullPayload(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	st := bug.StatusResolved
	_, err = svc.Update(ctx, created.ID, bug.Input{Status: &st})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{bug.MsgTitleRequired, bug.MsgDescriptionRequired, bug.MsgReporterRequired}, ve.Errors)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, bug.StatusOpen, got.Status)
}

func TestUpdate_InvalidEnumRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	in := bug.InputOf(created)
	sev := bug.Severity("blocker")
	in.Severity = &sev
	_, err = svc.Update(ctx, created.ID, in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{bug.MsgInvalidSeverity}, ve.Errors)
}

func TestDeleteThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestNeverCreatedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	id := primitive.NewObjectID().Hex()

	_, err := svc.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, id, sampleInput())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
}

func TestMalformedIDIsInternal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Get(ctx, "not-an-id")
	var ie *InternalError
	require.ErrorAs(t, err, &ie)
	require.ErrorIs(t, err, repository.ErrInvalidID)
	require.Equal(t, "get bug", ie.Op)

	require.ErrorAs(t, svc.Delete(ctx, "42"), &ie)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	var ids []string
	for _, title := range []string{"t1", "t2", "t3"} {
		in := sampleInput()
		in.Title = title
		b, err := svc.Create(ctx, in)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{list[0].Title, list[1].Title, list[2].Title})
	assert.Equal(t, ids[2], list[0].ID)
}

func TestStoreFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("connection refused")
	repo := &failingRepo{err: cause}
	svc := NewService(repo)
	id := primitive.NewObjectID().Hex()

	_, err := svc.List(ctx)
	require.ErrorIs(t, err, cause)
	var ie *InternalError
	require.ErrorAs(t, err, &ie)

	_, err = svc.Get(ctx, id)
	require.ErrorAs(t, err, &ie)
	_, err = svc.Create(ctx, sampleInput())
	require.ErrorAs(t, err, &ie)
	_, err = svc.Update(ctx, id, sampleInput())
	require.ErrorAs(t, err, &ie)
	require.ErrorAs(t, svc.Delete(ctx, id), &ie)

	// one store call per operation, no retries
	require.Equal(t, 5, repo.calls)
}

func TestPublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(WithPublisher(pub))

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = svc.Update(ctx, created.ID, bug.InputOf(created))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	// failed mutations publish nothing
	_, _ = svc.Create(ctx, bug.Input{})
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)

	require.Len(t, pub.events, 3)
	assert.Equal(t, events.BugCreated, pub.events[0].Type)
	assert.Equal(t, events.BugUpdated, pub.events[1].Type)
	assert.Equal(t, events.BugDeleted, pub.events[2].Type)
	for _, e := range pub.events {
		assert.Equal(t, created.ID, e.BugID)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(WithPublisher(pub))

	created, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Len(t, pub.events, 1)
}

func TestConcurrentDeletesOnlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	svc := NewService(repository.NewMemoryRepo())
	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	const workers = 50
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Update(ctx, created.ID, sampleInput()); err != nil && !errors.Is(err, ErrNotFound) {
				t.Errorf("update: %v", err)
			}
			errs[i] = svc.Delete(ctx, created.ID)
		}(i)
	}
	wg.Wait()

	var ok, missing int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			missing++
		default:
			t.Errorf("delete: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, missing)
}
