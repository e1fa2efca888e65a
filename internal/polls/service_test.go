package polls

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

type fixture struct {
	store     *memStore
	annotator *setAnnotator
	events    *recordingPublisher
	svc       *Service
	owner     uuid.UUID
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		events: &recordingPublisher{},
		owner:  uuid.New(),
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.annotator = &setAnnotator{favorites: f.store.favorites}
	f.svc = NewService(f.store, f.annotator, authz.NewPolicy(""), f.events, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedPoll(title string, contents ...string) models.Poll {
	p := models.Poll{Title: title, OwnerID: f.owner}
	for _, c := range contents {
		p.Questions = append(p.Questions, models.Question{Content: c, Type: models.QuestionText})
	}
	return f.store.seed(p)
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok, "expected apperr, got %v", err)
	assert.Equal(t, kind, e.Kind)
}

func contents(qs []models.Question) []string {
	var out []string
	for _, q := range qs {
		out = append(out, q.Content)
	}
	return out
}

func TestUpdateUpdatesAndCreates(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")
	q10 := poll.Questions[0].ID

	got, err := f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{
		Title: "T",
		Questions: []models.QuestionInput{
			{ID: &q10, Content: "B"},
			{Content: "C"},
		},
	})

	require.NoError(t, err)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, q10, got.Questions[0].ID)
	assert.Equal(t, "B", got.Questions[0].Content)
	assert.Equal(t, "C", got.Questions[1].Content)
	assert.NotContains(t, f.store.calls, "DeleteQuestion")
	assert.Equal(t, []publishedEvent{{event: EventPollUpdated, pollID: poll.ID}}, f.events.events)
}

func TestUpdateReplacesQuestion(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")
	q10 := poll.Questions[0].ID

	got, err := f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{
		Title:     "T",
		Questions: []models.QuestionInput{{Content: "C"}},
	})

	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "C", got.Questions[0].Content)
	assert.NotEqual(t, q10, got.Questions[0].ID)
}

func TestUpdateWritesPollFieldsButNotArchiveState(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("Old", "A")

	got, err := f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{
		Title:       "New",
		Description: "described",
		Premium:     true,
		Questions:   []models.QuestionInput{},
	})

	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "described", got.Description)
	assert.True(t, got.Premium)
	assert.False(t, got.Archived)
	assert.Nil(t, got.ArchivedAt)
	assert.Empty(t, got.Questions)
}

func TestUpdateMissingQuestionsIsValidationError(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")

	_, err := f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{Title: "Changed"})

	assertKind(t, err, apperr.KindValidation)
	assert.Empty(t, f.store.calls, "no store access before validation")
	assert.Equal(t, "T", f.store.load(poll.ID).Title)
}

func TestUpdateByNonOwnerIsRejected(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")

	_, err := f.svc.Update(context.Background(), authz.User(uuid.New()), poll.ID, models.PollInput{
		Title:     "Hijacked",
		Questions: []models.QuestionInput{},
	})

	assertKind(t, err, apperr.KindAuthorization)
	stored := f.store.load(poll.ID)
	assert.Equal(t, "T", stored.Title)
	assert.Equal(t, []string{"A"}, contents(stored.Questions))
}

func TestUpdateByAnonymousTouchesNothing(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")

	_, err := f.svc.Update(context.Background(), authz.Anonymous(), poll.ID, models.PollInput{
		Title:     "x",
		Questions: []models.QuestionInput{},
	})

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.True(t, e.Unauthenticated)
	assert.Empty(t, f.store.calls)
}

func TestUpdateRollsBackOnFailure(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A", "B")
	keep := poll.Questions[0].ID
	f.store.failOn = "DeleteQuestion"

	_, err := f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{
		Title: "Changed",
		Questions: []models.QuestionInput{
			{ID: &keep, Content: "A2"},
			{Content: "new"},
		},
	})

	assert.ErrorIs(t, err, errInjected)
	stored := f.store.load(poll.ID)
	assert.Equal(t, "T", stored.Title)
	assert.Equal(t, []string{"A", "B"}, contents(stored.Questions))
	assert.Empty(t, f.events.events)
}

func TestUpdateArchivedPollIsNotFound(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{
		Title:     "T",
		Questions: []models.QuestionInput{},
	})

	assertKind(t, err, apperr.KindNotFound)
}

func TestUpdateRejectsChoiceQuestionWithoutOptions(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T")

	_, err := f.svc.Update(context.Background(), authz.User(f.owner), poll.ID, models.PollInput{
		Title:     "T",
		Questions: []models.QuestionInput{{Content: "Pick", Type: models.QuestionDropdown}},
	})

	assertKind(t, err, apperr.KindValidation)
}

func TestArchive(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")

	_, err := f.svc.Archive(context.Background(), authz.User(uuid.New()), poll.ID)
	assertKind(t, err, apperr.KindAuthorization)
	assert.False(t, f.store.load(poll.ID).Archived)

	got, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)
	require.NotNil(t, got.ArchivedAt)
	assert.Equal(t, f.now, *got.ArchivedAt)
	assert.Equal(t, []publishedEvent{{event: EventPollArchived, pollID: poll.ID}}, f.events.events)

	_, err = f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestOwnerOperationsDoNotRevealMissingPolls(t *testing.T) {
	f := newFixture()
	existing := f.seedPoll("T", "A")
	stranger := authz.User(uuid.New())
	edit := models.PollInput{Title: "x", Questions: []models.QuestionInput{}}

	_, errExisting := f.svc.Update(context.Background(), stranger, existing.ID, edit)
	_, errMissing := f.svc.Update(context.Background(), stranger, uuid.New(), edit)
	assert.Equal(t, errExisting, errMissing)
	assertKind(t, errMissing, apperr.KindAuthorization)

	_, errExisting = f.svc.Archive(context.Background(), stranger, existing.ID)
	_, errMissing = f.svc.Archive(context.Background(), stranger, uuid.New())
	assert.Equal(t, errExisting, errMissing)

	assert.Equal(t, f.svc.Delete(context.Background(), stranger, existing.ID),
		f.svc.Delete(context.Background(), stranger, uuid.New()))
}

func TestRestoreMissingPollIsNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Restore(context.Background(), authz.User(uuid.New(), authz.DefaultAdminPermission), uuid.New())

	assertKind(t, err, apperr.KindNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A", "B")
	viewer := uuid.New()
	f.store.favorite(viewer, poll.ID)

	err := f.svc.Delete(context.Background(), authz.Anonymous(), poll.ID)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.True(t, e.Unauthenticated)
	assert.Empty(t, f.store.calls)

	err = f.svc.Delete(context.Background(), authz.User(uuid.New()), poll.ID)
	assertKind(t, err, apperr.KindAuthorization)
	assert.NotContains(t, f.store.calls, "DeletePoll")

	require.NoError(t, f.svc.Delete(context.Background(), authz.User(f.owner), poll.ID))
	assert.NotContains(t, f.store.polls, poll.ID)
	assert.Empty(t, f.store.questions[poll.ID])
	assert.False(t, f.store.favorites[viewer][poll.ID])
	assert.Equal(t, []publishedEvent{{event: EventPollDeleted, pollID: poll.ID}}, f.events.events)

	err = f.svc.Delete(context.Background(), authz.User(f.owner), poll.ID)
	assertKind(t, err, apperr.KindAuthorization)
}

func TestDeleteArchivedPollIsNotFound(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T")
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), authz.User(f.owner), poll.ID)

	assertKind(t, err, apperr.KindNotFound)
	assert.Contains(t, f.store.polls, poll.ID)
}

func TestListFiltersByOwner(t *testing.T) {
	f := newFixture()
	mine := f.seedPoll("mine")
	other := uuid.New()
	f.store.seed(models.Poll{Title: "theirs", OwnerID: other})

	list, err := f.svc.List(context.Background(), authz.Anonymous(), &f.owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.svc.List(context.Background(), authz.Anonymous(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRestore(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T", "A")
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)

	_, err = f.svc.Restore(context.Background(), authz.User(f.owner), poll.ID)
	assertKind(t, err, apperr.KindAuthorization)

	admin := authz.User(uuid.New(), authz.DefaultAdminPermission)
	got, err := f.svc.Restore(context.Background(), admin, poll.ID)
	require.NoError(t, err)
	assert.False(t, got.Archived)
	assert.Nil(t, got.ArchivedAt)

	_, err = f.svc.Restore(context.Background(), admin, poll.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestRestoreChecksPermissionBeforeLookup(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Restore(context.Background(), authz.User(uuid.New()), uuid.New())

	assertKind(t, err, apperr.KindAuthorization)
	assert.Empty(t, f.store.calls)
}

func TestListShowsActivePollsAnnotated(t *testing.T) {
	f := newFixture()
	viewer := uuid.New()
	active := f.seedPoll("active")
	archived := f.seedPoll("archived")
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), archived.ID)
	require.NoError(t, err)
	f.store.favorite(viewer, active.ID)

	list, err := f.svc.List(context.Background(), authz.User(viewer), nil)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)
	assert.True(t, list[0].IsFavorite)
	assert.Equal(t, 1, f.annotator.calls)

	anon, err := f.svc.List(context.Background(), authz.Anonymous(), nil)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.False(t, anon[0].IsFavorite)
}

func TestGetArchivedPollOnlyForOwner(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T")
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	_, err = f.svc.Get(context.Background(), authz.User(uuid.New()), poll.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Get(context.Background(), authz.Anonymous(), poll.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestListArchivedRequiresPermission(t *testing.T) {
	f := newFixture()
	poll := f.seedPoll("T")
	f.seedPoll("still active")
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)
	require.NoError(t, err)

	_, err = f.svc.ListArchived(context.Background(), authz.User(f.owner))
	assertKind(t, err, apperr.KindAuthorization)

	list, err := f.svc.ListArchived(context.Background(), authz.User(uuid.New(), authz.DefaultAdminPermission))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, poll.ID, list[0].ID)
}

func TestListFavoritesSkipsArchived(t *testing.T) {
	f := newFixture()
	viewer := uuid.New()
	kept := f.seedPoll("kept")
	gone := f.seedPoll("gone")
	f.seedPoll("not a favorite")
	f.store.favorite(viewer, kept.ID)
	f.store.favorite(viewer, gone.ID)
	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), gone.ID)
	require.NoError(t, err)

	list, err := f.svc.ListFavorites(context.Background(), authz.User(viewer))

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)
	assert.True(t, list[0].IsFavorite)

	_, err = f.svc.ListFavorites(context.Background(), authz.Anonymous())
	assertKind(t, err, apperr.KindAuthorization)
}

func TestCreate(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), authz.Anonymous(), models.PollInput{Title: "T", Questions: []models.QuestionInput{}})
	assertKind(t, err, apperr.KindAuthorization)

	_, err = f.svc.Create(context.Background(), authz.User(f.owner), models.PollInput{Title: "T"})
	assertKind(t, err, apperr.KindValidation)

	got, err := f.svc.Create(context.Background(), authz.User(f.owner), models.PollInput{
		Title: "Lunch",
		Questions: []models.QuestionInput{
			{Content: "Name?"},
			{Content: "Where?", Type: models.QuestionSingleChoice, Choices: "Pizza|Sushi", Required: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, f.owner, got.OwnerID)
	assert.False(t, got.Archived)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, models.QuestionText, got.Questions[0].Type)
	assert.Equal(t, []string{"Pizza", "Sushi"}, got.Questions[1].Options())
	assert.Equal(t, []publishedEvent{{event: EventPollCreated, pollID: got.ID}}, f.events.events)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.events.err = errInjected
	poll := f.seedPoll("T")

	_, err := f.svc.Archive(context.Background(), authz.User(f.owner), poll.ID)

	assert.NoError(t, err)
}
