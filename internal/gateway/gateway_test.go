package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/models"
	"github.com/xaenox/scribly/internal/notes"
)

const token = "tok"

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) ListNotes(ctx context.Context, token string) ([]models.Note, error) {
	args := m.Called(ctx, token)
	list, _ := args.Get(0).([]models.Note)
	return list, args.Error(1)
}

func (m *mockRemote) CreateNote(ctx context.Context, token string, draft models.Draft) (models.Note, error) {
	args := m.Called(ctx, token, draft)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *mockRemote) UpdateNote(ctx context.Context, token, id string, draft models.Draft) (models.Note, error) {
	args := m.Called(ctx, token, id, draft)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *mockRemote) DeleteNote(ctx context.Context, token, id string) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

type transitions struct {
	mu  sync.Mutex
	log map[Action][]Status
}

func (tr *transitions) record(a Action, s Status) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.log == nil {
		tr.log = map[Action][]Status{}
	}
	tr.log[a] = append(tr.log[a], s)
}

func (tr *transitions) of(a Action) []Status {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Status(nil), tr.log[a]...)
}

func setup(t *testing.T, seed ...models.Note) (*Gateway, *mockRemote, *transitions) {
	t.Helper()
	store := notes.NewStore()
	require.NoError(t, store.ReplaceAll(seed))

	remote := &mockRemote{}
	tr := &transitions{}
	g := New(remote, store, token, zap.NewNop(), WithTransitionHook(tr.record))
	t.Cleanup(func() { remote.AssertExpectations(t) })
	return g, remote, tr
}

func storeIDs(s *notes.Store) []string {
	var out []string
	for _, n := range s.Notes() {
		out = append(out, n.ID)
	}
	return out
}

func TestListReplacesCollection(t *testing.T) {
	g, remote, tr := setup(t, models.Note{ID: "old", Title: "Old"})
	remote.On("ListNotes", mock.Anything, token).
		Return([]models.Note{{ID: "1", Title: "One"}, {ID: "2", Title: "Two"}}, nil).Once()

	require.NoError(t, g.List(context.Background()))

	assert.Equal(t, []string{"1", "2"}, storeIDs(g.Store()))
	assert.Equal(t, []Status{Pending, Succeeded, Idle}, tr.of(ActionList))
	assert.Equal(t, State{Status: Idle, Last: Succeeded}, g.State(ActionList))
}

func TestListFailureKeepsCollection(t *testing.T) {
	g, remote, _ := setup(t, models.Note{ID: "old", Title: "Old"})
	failure := &api.Error{Kind: api.TransportFailure, Op: "list notes", Err: errors.New("connection refused")}
	remote.On("ListNotes", mock.Anything, token).Return(nil, failure).Once()

	err := g.List(context.Background())
	require.ErrorIs(t, err, failure)

	assert.Equal(t, []string{"old"}, storeIDs(g.Store()))
	st := g.State(ActionList)
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, Failed, st.Last)
	assert.Equal(t, api.GenericMessage, st.Message)
}

func TestCreateIdeaScenario(t *testing.T) {
	g, remote, tr := setup(t)
	draft := models.Draft{Title: "Idea", Content: "", IsPublic: true}
	remote.On("CreateNote", mock.Anything, token, draft).
		Return(models.Note{ID: "9", Title: "Idea", Content: "", IsPublic: true}, nil).Once()

	created, err := g.Create(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, "9", created.ID)
	assert.Equal(t, []models.Note{{ID: "9", Title: "Idea", IsPublic: true}}, g.Store().Notes())
	assert.Equal(t, []Status{Pending, Succeeded, Idle}, tr.of(ActionCreate))
}

func TestCreateMalformedLeavesStoreUnchanged(t *testing.T) {
	g, remote, tr := setup(t, models.Note{ID: "1", Title: "One"})
	draft := models.Draft{Title: "Idea"}
	malformed := &api.Error{Kind: api.MalformedResponse, Op: "create note", Err: errors.New("title missing")}
	remote.On("CreateNote", mock.Anything, token, draft).Return(models.Note{}, malformed).Once()

	_, err := g.Create(context.Background(), draft)
	require.Error(t, err)
	assert.Equal(t, api.MalformedResponse, api.KindOf(err))

	assert.Equal(t, []string{"1"}, storeIDs(g.Store()))
	assert.Equal(t, []Status{Pending, Failed, Idle}, tr.of(ActionCreate))
	assert.Equal(t, Failed, g.State(ActionCreate).Last)
}

func TestCreateRejectsInvalidDraftLocally(t *testing.T) {
	g, remote, _ := setup(t)

	_, err := g.Create(context.Background(), models.Draft{Content: "no title"})
	require.Error(t, err)
	assert.Equal(t, "a note needs a title", g.State(ActionCreate).Message)

	_, err = g.Create(context.Background(), models.Draft{Title: "x", EditingID: "1"})
	require.Error(t, err)

	remote.AssertNotCalled(t, "CreateNote", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAfterListAlreadyHasNote(t *testing.T) {
	g, remote, _ := setup(t, models.Note{ID: "9", Title: "Idea"})
	draft := models.Draft{Title: "Idea", Content: "body"}
	remote.On("CreateNote", mock.Anything, token, draft).
		Return(models.Note{ID: "9", Title: "Idea", Content: "body"}, nil).Once()

	_, err := g.Create(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, []models.Note{{ID: "9", Title: "Idea", Content: "body"}}, g.Store().Notes())
}

func TestSameActionIsRejectedWhilePending(t *testing.T) {
	g, remote, _ := setup(t, models.Note{ID: "1", Title: "One"})
	draft := models.Draft{Title: "Slow"}
	started := make(chan struct{})
	release := make(chan struct{})
	remote.On("CreateNote", mock.Anything, token, draft).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(models.Note{ID: "2", Title: "Slow"}, nil).Once()
	remote.On("DeleteNote", mock.Anything, token, "1").Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := g.Create(context.Background(), draft)
		done <- err
	}()
	<-started

	assert.True(t, g.Pending(ActionCreate))
	_, err := g.Create(context.Background(), draft)
	assert.ErrorIs(t, err, ErrBusy)

	// other actions are not blocked by a pending create
	require.NoError(t, g.Delete(context.Background(), "1"))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, g.Pending(ActionCreate))
	assert.Equal(t, []string{"2"}, storeIDs(g.Store()))
}

func TestUpdate(t *testing.T) {
	g, remote, tr := setup(t,
		models.Note{ID: "1", Title: "One"},
		models.Note{ID: "2", Title: "Two"},
		models.Note{ID: "3", Title: "Three"},
	)
	draft := models.Draft{Title: "Two!", Content: "more", EditingID: "2"}
	remote.On("UpdateNote", mock.Anything, token, "2", draft).
		Return(models.Note{ID: "2", Title: "Two!", Content: "more"}, nil).Once()

	_, err := g.Update(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, storeIDs(g.Store()))
	got, _ := g.Store().Get("2")
	assert.Equal(t, "Two!", got.Title)
	assert.Equal(t, []Status{Pending, Succeeded, Idle}, tr.of(ActionUpdate))
}

func TestUpdateFailureKeepsNote(t *testing.T) {
	g, remote, _ := setup(t, models.Note{ID: "1", Title: "One"})
	draft := models.Draft{Title: "New", EditingID: "1"}
	remote.On("UpdateNote", mock.Anything, token, "1", draft).
		Return(models.Note{}, &api.Error{Kind: api.ApplicationFailure, Op: "update note", Status: 500}).Once()

	_, err := g.Update(context.Background(), draft)
	require.Error(t, err)

	got, _ := g.Store().Get("1")
	assert.Equal(t, "One", got.Title)
}

func TestDeleteFailureKeepsNote(t *testing.T) {
	g, remote, tr := setup(t, models.Note{ID: "1", Title: "One"})
	remote.On("DeleteNote", mock.Anything, token, "1").
		Return(&api.Error{Kind: api.TransportFailure, Op: "delete note", Err: errors.New("timeout")}).Once()

	require.Error(t, g.Delete(context.Background(), "1"))

	_, ok := g.Store().Get("1")
	assert.True(t, ok)
	assert.Equal(t, []Status{Pending, Failed, Idle}, tr.of(ActionDelete))
}

func TestAuthenticationRequiredIsDistinguished(t *testing.T) {
	g, remote, _ := setup(t, models.Note{ID: "1", Title: "One"})
	remote.On("DeleteNote", mock.Anything, token, "1").
		Return(&api.Error{Kind: api.AuthenticationRequired, Op: "delete note", Status: 401}).Once()

	err := g.Delete(context.Background(), "1")
	assert.True(t, api.IsAuthRequired(err))
	assert.Equal(t, "Your session has expired. Please log in again.", g.State(ActionDelete).Message)
}

func TestResponseAfterCloseIsDiscarded(t *testing.T) {
	g, remote, _ := setup(t)
	draft := models.Draft{Title: "Late"}
	remote.On("CreateNote", mock.Anything, token, draft).
		Run(func(mock.Arguments) { g.Store().Close() }).
		Return(models.Note{ID: "5", Title: "Late"}, nil).Once()

	_, err := g.Create(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Store().Len())
}

func TestUpdateAndDeleteRace(t *testing.T) {
	for _, deleteFirst := range []bool{true, false} {
		name := "update lands first"
		if deleteFirst {
			name = "delete lands first"
		}
		t.Run(name, func(t *testing.T) {
			g, remote, _ := setup(t,
				models.Note{ID: "8", Title: "Eight"},
				models.Note{ID: "9", Title: "Idea"},
			)
			draft := models.Draft{Title: "Idea v2", EditingID: "9"}

			releaseDelete := make(chan struct{})
			releaseUpdate := make(chan struct{})
			remote.On("DeleteNote", mock.Anything, token, "9").
				Run(func(mock.Arguments) { <-releaseDelete }).
				Return(nil).Once()
			remote.On("UpdateNote", mock.Anything, token, "9", draft).
				Run(func(mock.Arguments) { <-releaseUpdate }).
				Return(models.Note{ID: "9", Title: "Idea v2"}, nil).Once()

			deleted := make(chan error, 1)
			updated := make(chan error, 1)
			go func() { deleted <- g.Delete(context.Background(), "9") }()
			go func() {
				_, err := g.Update(context.Background(), draft)
				updated <- err
			}()

			first, second := releaseUpdate, releaseDelete
			firstDone, secondDone := updated, deleted
			if deleteFirst {
				first, second = releaseDelete, releaseUpdate
				firstDone, secondDone = deleted, updated
			}
			close(first)
			require.NoError(t, <-firstDone)
			close(second)
			require.NoError(t, <-secondDone)

			assert.Equal(t, []string{"8"}, storeIDs(g.Store()))
		})
	}
}
