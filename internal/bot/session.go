package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/gateway"
	"github.com/xaenox/scribly/internal/models"
	"github.com/xaenox/scribly/internal/notes"
	"github.com/xaenox/scribly/internal/storage"
)

// session is one chat's notes view: its store, gateway, form and query.
type session struct {
	chatID  int64
	token   string
	gateway *gateway.Gateway

	mu    sync.Mutex
	draft models.Draft
	query string
}

func (s *session) store() *notes.Store {
	return s.gateway.Store()
}

func (s *session) view() notes.View {
	s.mu.Lock()
	query := s.query
	s.mu.Unlock()
	return notes.Derive(s.store().Notes(), query)
}

func (s *session) setQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// beginEdit binds the form to a note. Only one note is in edit at a time, so
// this replaces whatever was being edited before.
func (s *session) beginEdit(d models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
}

// draftFor returns the form for n: the pending draft when n is the note in
// edit, so a failed save can be retried with what was typed.
func (s *session) draftFor(n models.Note) models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Editing() && s.draft.EditingID == n.ID {
		return s.draft
	}
	return models.DraftFrom(n)
}

func (s *session) clearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = models.Draft{}
}

func (s *session) editing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.EditingID
}

// resolve turns what the user typed into a note id: either an id present in
// the store or a 1-based position in the current view.
func (s *session) resolve(ref string) (string, bool) {
	if _, ok := s.store().Get(ref); ok {
		return ref, true
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return "", false
	}
	shown := s.view().Notes
	if n < 1 || n > len(shown) {
		return "", false
	}
	return shown[n-1].ID, true
}

// openSession builds a fresh view for chatID and runs the initial list
// fetch. The session is kept even when that fetch fails, unless the token
// was rejected.
func (b *Bot) openSession(ctx context.Context, chatID int64, token string) (*session, error) {
	s := &session{
		chatID:  chatID,
		token:   token,
		gateway: gateway.New(b.backend, notes.NewStore(), token, b.logger.With(zap.Int64("chat_id", chatID))),
	}

	b.mu.Lock()
	if old, ok := b.sessions[chatID]; ok {
		old.store().Close()
	}
	b.sessions[chatID] = s
	b.mu.Unlock()

	reqCtx, cancel := b.requestContext(ctx)
	defer cancel()
	if err := s.gateway.List(reqCtx); err != nil {
		if api.IsAuthRequired(err) {
			b.endSession(ctx, chatID)
		}
		return s, err
	}
	return s, nil
}

// session returns the live view for chatID, restoring it from storage after
// a restart. It reports false when the chat is not logged in.
func (b *Bot) session(ctx context.Context, chatID int64) (*session, bool) {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	b.mu.Unlock()
	if ok {
		if err := b.storage.TouchSession(ctx, chatID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			b.logger.Debug("Failed to touch session", zap.Error(err), zap.Int64("chat_id", chatID))
		}
		return s, true
	}

	saved, err := b.storage.GetSession(ctx, chatID)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			b.logger.Error("Failed to load session", zap.Error(err), zap.Int64("chat_id", chatID))
		}
		return nil, false
	}

	s, err = b.openSession(ctx, chatID, saved.Token)
	if err != nil && api.IsAuthRequired(err) {
		return nil, false
	}
	if err != nil {
		b.logger.Warn("Initial note fetch failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	return s, true
}

// endSession tears down the chat's view and forgets its token. Responses
// still in flight for it are discarded.
func (b *Bot) endSession(ctx context.Context, chatID int64) {
	b.mu.Lock()
	if s, ok := b.sessions[chatID]; ok {
		s.store().Close()
		delete(b.sessions, chatID)
	}
	b.mu.Unlock()

	if err := b.storage.DeleteSession(ctx, chatID); err != nil {
		b.logger.Error("Failed to delete session", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) closeSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.sessions {
		s.store().Close()
		delete(b.sessions, id)
	}
}
