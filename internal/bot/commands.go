package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/gateway"
	"github.com/xaenox/scribly/internal/models"
)

const welcome = `Welcome to Scribly! 📝
Log in with /login <email> <password>, then send me any text to save it as a note.
Use /help to see all available commands.`

const help = `Available commands:
/login <email> <password> - Log in to your Scribly account
/logout - Log out
/notes - Show your notes
/refresh - Reload notes from the server
/new <title> | <content> | public - Create a note (content and visibility are optional)
/edit <id or #> <title> | <content> | private - Update a note, empty parts stay as they are
/cancel - Stop editing and clear the search
/delete <id or #> - Delete a note
/search <text> - Filter notes and show suggestions, /search alone clears it

Any other text is saved as a new note with a suggested title.`

func (b *Bot) handleStart(message *tgbotapi.Message) {
	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleLogin(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	fields := strings.Fields(message.CommandArguments())
	if len(fields) != 2 {
		b.sendMessage(chatID, "Usage: /login <email> <password>")
		return
	}
	b.forget(message)

	creds := models.Credentials{Email: fields[0], Password: fields[1]}
	reqCtx, cancel := b.requestContext(ctx)
	token, err := b.backend.Login(reqCtx, creds)
	cancel()
	if err != nil {
		b.logger.Info("Login failed", zap.Error(err), zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Login failed: "+api.UserMessage(err))
		return
	}

	if err := b.storage.SaveSession(ctx, &models.Session{ChatID: chatID, Email: creds.Email, Token: token}); err != nil {
		b.logger.Error("Failed to save session", zap.Error(err), zap.Int64("chat_id", chatID))
	}

	s, err := b.openSession(ctx, chatID, token)
	if err != nil {
		b.sendErrorMessage(chatID, "Logged in, but I couldn't load your notes: "+api.UserMessage(err))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("Logged in as %s. You have %d notes.", creds.Email, s.store().Len()))
}

func (b *Bot) handleLogout(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	token := ""
	b.mu.Lock()
	if s, ok := b.sessions[chatID]; ok {
		token = s.token
	}
	b.mu.Unlock()
	if token == "" {
		if saved, err := b.storage.GetSession(ctx, chatID); err == nil {
			token = saved.Token
		}
	}

	reqCtx, cancel := b.requestContext(ctx)
	if err := b.backend.Logout(reqCtx, token); err != nil {
		b.logger.Warn("Remote logout failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	cancel()

	b.endSession(ctx, chatID)
	b.sendMessage(chatID, "Logged out. See you soon!")
}

func (b *Bot) handleNotes(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}
	b.sendView(message.Chat.ID, s)
}

func (b *Bot) handleRefresh(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}

	reqCtx, cancel := b.requestContext(ctx)
	err := s.gateway.List(reqCtx)
	cancel()
	if err != nil {
		b.actionFailed(ctx, message.Chat.ID, gateway.ActionList, err)
		return
	}
	b.sendView(message.Chat.ID, s)
}

func (b *Bot) handleNew(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}

	draft, err := parseDraft(message.CommandArguments(), models.Draft{})
	if err != nil {
		b.sendMessage(message.Chat.ID, "A note needs a title. Usage: /new <title> | <content> | public")
		return
	}
	b.create(ctx, message.Chat.ID, s, draft)
}

func (b *Bot) handleQuickNote(ctx context.Context, message *tgbotapi.Message, content string) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}
	if s.gateway.Pending(gateway.ActionCreate) {
		b.sendMessage(message.Chat.ID, busyMessage)
		return
	}

	titleCtx, cancel := b.requestContext(ctx)
	title := b.titler.SuggestTitle(titleCtx, content)
	cancel()
	b.create(ctx, message.Chat.ID, s, models.Draft{Title: title, Content: content})
}

func (b *Bot) create(ctx context.Context, chatID int64, s *session, draft models.Draft) {
	reqCtx, cancel := b.requestContext(ctx)
	note, err := s.gateway.Create(reqCtx, draft)
	cancel()
	if err != nil {
		b.actionFailed(ctx, chatID, gateway.ActionCreate, err)
		return
	}
	b.sendMarkdown(chatID, "Saved ✅\n\n"+formatNote(0, note))
}

func (b *Bot) handleEdit(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}
	chatID := message.Chat.ID

	ref, rest, _ := strings.Cut(strings.TrimSpace(message.CommandArguments()), " ")
	if ref == "" {
		b.sendMessage(chatID, "Usage: /edit <id or #> <title> | <content> | public")
		return
	}
	id, found := s.resolve(ref)
	if !found {
		b.sendMessage(chatID, fmt.Sprintf("I can't find note %q. Use /notes to see your notes.", ref))
		return
	}
	current, _ := s.store().Get(id)

	if strings.TrimSpace(rest) == "" {
		s.beginEdit(models.DraftFrom(current))
		b.sendMarkdown(chatID, "Editing:\n\n"+formatNote(0, current)+
			"\n\n"+escapeMarkdown(fmt.Sprintf("Send /edit %s <title> | <content> to save, or /cancel.", id)))
		return
	}

	draft, err := parseDraft(rest, s.draftFor(current))
	if err != nil {
		b.sendMessage(chatID, "A note needs a title. Usage: /edit <id or #> <title> | <content>")
		return
	}
	if s.gateway.Pending(gateway.ActionUpdate) {
		b.sendMessage(chatID, busyMessage)
		return
	}
	s.beginEdit(draft)

	reqCtx, cancel := b.requestContext(ctx)
	updated, err := s.gateway.Update(reqCtx, draft)
	cancel()
	if err != nil {
		b.actionFailed(ctx, chatID, gateway.ActionUpdate, err)
		return
	}
	if s.editing() == id {
		s.clearDraft()
	}
	b.sendMarkdown(chatID, "Updated ✏️\n\n"+formatNote(0, updated))
}

func (b *Bot) handleCancel(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}
	s.clearDraft()
	s.setQuery("")
	b.sendMessage(message.Chat.ID, "Cleared.")
}

func (b *Bot) handleDelete(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}
	chatID := message.Chat.ID

	ref := strings.TrimSpace(message.CommandArguments())
	id, found := s.resolve(ref)
	if ref == "" || !found {
		b.sendMessage(chatID, "Usage: /delete <id or #>. Use /notes to see your notes.")
		return
	}

	reqCtx, cancel := b.requestContext(ctx)
	err := s.gateway.Delete(reqCtx, id)
	cancel()
	if err != nil {
		b.actionFailed(ctx, chatID, gateway.ActionDelete, err)
		return
	}
	if s.editing() == id {
		s.clearDraft()
	}
	b.sendMessage(chatID, "Deleted 🗑")
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	s, ok := b.requireSession(ctx, message)
	if !ok {
		return
	}
	s.setQuery(strings.TrimSpace(message.CommandArguments()))
	b.sendView(message.Chat.ID, s)
}

const busyMessage = "Still working on your previous request, please wait a moment."

func (b *Bot) requireSession(ctx context.Context, message *tgbotapi.Message) (*session, bool) {
	s, ok := b.session(ctx, message.Chat.ID)
	if !ok {
		b.sendMessage(message.Chat.ID, "Please /login first.")
	}
	return s, ok
}

func (b *Bot) sendView(chatID int64, s *session) {
	s.mu.Lock()
	query := s.query
	s.mu.Unlock()
	b.sendMarkdown(chatID, formatView(s.view(), query))
}

// actionFailed reports a failed action next to where the user triggered it.
// An expired session sends the user back to /login.
func (b *Bot) actionFailed(ctx context.Context, chatID int64, action gateway.Action, err error) {
	switch {
	case errors.Is(err, gateway.ErrBusy):
		b.sendMessage(chatID, busyMessage)
	case api.IsAuthRequired(err):
		b.endSession(ctx, chatID)
		b.sendErrorMessage(chatID, "Your session has expired. Please /login again.")
	case action == gateway.ActionDelete:
		b.sendErrorMessage(chatID, "Couldn't delete the note: "+api.UserMessage(err))
	default:
		b.sendErrorMessage(chatID, fmt.Sprintf("Couldn't %s: %s", actionVerb[action], api.UserMessage(err)))
	}
}

var actionVerb = map[gateway.Action]string{
	gateway.ActionList:   "load your notes",
	gateway.ActionCreate: "save the note",
	gateway.ActionUpdate: "update the note",
	gateway.ActionDelete: "delete the note",
}
