// Package gateway turns note intents into remote calls and reconciles the
// outcomes into a session's note store.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/models"
	"github.com/xaenox/scribly/internal/notes"
)

// ErrBusy is returned when the same action is already in flight. Hosts treat
// it as a disabled control.
var ErrBusy = errors.New("action already in progress")

// Remote is the subset of the notes API the gateway drives.
type Remote interface {
	ListNotes(ctx context.Context, token string) ([]models.Note, error)
	CreateNote(ctx context.Context, token string, draft models.Draft) (models.Note, error)
	UpdateNote(ctx context.Context, token, id string, draft models.Draft) (models.Note, error)
	DeleteNote(ctx context.Context, token, id string) error
}

type Action string

const (
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var actions = []Action{ActionList, ActionCreate, ActionUpdate, ActionDelete}

type Status int

const (
	Idle Status = iota
	Pending
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is the snapshot of one action. Status is Idle or Pending; Last holds
// the outcome of the most recent completed call.
type State struct {
	Status  Status
	Last    Status
	Err     error
	Message string
}

// TransitionFunc observes every state change of every action.
type TransitionFunc func(action Action, status Status)

type Option func(*Gateway)

func WithTransitionHook(fn TransitionFunc) Option {
	return func(g *Gateway) {
		g.onTransition = fn
	}
}

// Gateway owns the per-action in-flight flags of one session.
type Gateway struct {
	remote       Remote
	store        *notes.Store
	token        string
	logger       *zap.Logger
	onTransition TransitionFunc

	mu     sync.Mutex
	states map[Action]*State
}

func New(remote Remote, store *notes.Store, token string, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		remote: remote,
		store:  store,
		token:  token,
		logger: logger,
		states: make(map[Action]*State, len(actions)),
	}
	for _, a := range actions {
		g.states[a] = &State{}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Store() *notes.Store {
	return g.store
}

// State returns a copy of the action's current state.
func (g *Gateway) State(a Action) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.states[a]
}

func (g *Gateway) Pending(a Action) bool {
	return g.State(a).Status == Pending
}

// List fetches the collection and replaces the store's content with it.
func (g *Gateway) List(ctx context.Context) error {
	if err := g.begin(ActionList); err != nil {
		return err
	}

	fetched, err := g.remote.ListNotes(ctx, g.token)
	if err == nil {
		err = g.reconcile(ActionList, func() error {
			return g.store.ReplaceAll(fetched)
		})
	}
	return g.finish(ActionList, err)
}

// Create submits a draft with no bound id and inserts the confirmed note.
func (g *Gateway) Create(ctx context.Context, draft models.Draft) (models.Note, error) {
	if err := g.begin(ActionCreate); err != nil {
		return models.Note{}, err
	}

	var created models.Note
	err := validateDraft(draft)
	if err == nil && draft.Editing() {
		err = errors.New("create called with a draft bound to an existing note")
	}
	if err == nil {
		created, err = g.remote.CreateNote(ctx, g.token, draft)
	}
	if err == nil {
		err = g.reconcile(ActionCreate, func() error {
			err := g.store.Insert(created)
			if errors.Is(err, notes.ErrDuplicateID) {
				// a list refresh that finished first already brought it in
				return g.store.Replace(created.ID, created)
			}
			return err
		})
	}
	if err := g.finish(ActionCreate, err); err != nil {
		return models.Note{}, err
	}
	return created, nil
}

// Update saves a draft bound to an existing note. If the note disappeared
// from the store while the request was in flight it stays gone.
func (g *Gateway) Update(ctx context.Context, draft models.Draft) (models.Note, error) {
	if err := g.begin(ActionUpdate); err != nil {
		return models.Note{}, err
	}

	var updated models.Note
	err := validateDraft(draft)
	if err == nil && !draft.Editing() {
		err = errors.New("update called with a draft that is not bound to a note")
	}
	if err == nil {
		updated, err = g.remote.UpdateNote(ctx, g.token, draft.EditingID, draft)
	}
	if err == nil {
		err = g.reconcile(ActionUpdate, func() error {
			err := g.store.Replace(draft.EditingID, updated)
			if errors.Is(err, notes.ErrNotFound) {
				g.logger.Info("Updated note is no longer in the collection",
					zap.String("note_id", draft.EditingID))
				return nil
			}
			return err
		})
	}
	if err := g.finish(ActionUpdate, err); err != nil {
		return models.Note{}, err
	}
	return updated, nil
}

// Delete removes the note remotely and then locally. On failure the note stays.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	if err := g.begin(ActionDelete); err != nil {
		return err
	}

	err := g.remote.DeleteNote(ctx, g.token, id)
	if err == nil {
		err = g.reconcile(ActionDelete, func() error {
			_, err := g.store.Remove(id)
			return err
		})
	}
	return g.finish(ActionDelete, err)
}

func (g *Gateway) begin(a Action) error {
	g.mu.Lock()
	st := g.states[a]
	if st.Status == Pending {
		g.mu.Unlock()
		return ErrBusy
	}
	st.Status = Pending
	g.mu.Unlock()

	g.transition(a, Pending)
	return nil
}

// finish records the outcome and returns the action to Idle.
func (g *Gateway) finish(a Action, err error) error {
	outcome := Succeeded
	if err != nil {
		outcome = Failed
	}

	g.mu.Lock()
	st := g.states[a]
	st.Last = outcome
	st.Err = err
	st.Message = api.UserMessage(err)
	g.mu.Unlock()
	g.transition(a, outcome)

	g.mu.Lock()
	st.Status = Idle
	g.mu.Unlock()
	g.transition(a, Idle)

	if err != nil {
		g.logger.Warn("Note action failed",
			zap.String("action", string(a)),
			zap.Stringer("kind", api.KindOf(err)),
			zap.Error(err))
	}
	return err
}

// reconcile applies a confirmed result unless the store was torn down while
// the request was in flight.
func (g *Gateway) reconcile(a Action, apply func() error) error {
	err := apply()
	if errors.Is(err, notes.ErrClosed) {
		g.logger.Debug("Discarding response for closed session",
			zap.String("action", string(a)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying %s result: %w", a, err)
	}
	return nil
}

func (g *Gateway) transition(a Action, s Status) {
	if g.onTransition != nil {
		g.onTransition(a, s)
	}
}

func validateDraft(d models.Draft) error {
	if err := api.ValidateDraft(d); err != nil {
		return &api.Error{Kind: api.ApplicationFailure, Op: "validate draft", Message: err.Error(), Err: err}
	}
	return nil
}
