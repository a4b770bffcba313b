package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/gateway"
	"github.com/xaenox/scribly/internal/models"
	"github.com/xaenox/scribly/internal/storage"
	"github.com/xaenox/scribly/internal/titler"
)

// Backend is the notes service as seen by the bot.
type Backend interface {
	gateway.Remote
	Login(ctx context.Context, creds models.Credentials) (string, error)
	Logout(ctx context.Context, token string) error
}

// sender is the part of tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  sender
	backend Backend
	storage storage.Storage
	titler  titler.Titler
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(token string, debug bool, backend Backend, storage storage.Storage, titler titler.Titler, logger *zap.Logger, timeout time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	b := newBot(api, backend, storage, titler, logger, timeout)
	b.api = api
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return b, nil
}

func newBot(sender sender, backend Backend, storage storage.Storage, titler titler.Titler, logger *zap.Logger, timeout time.Duration) *Bot {
	return &Bot{
		sender:   sender,
		backend:  backend,
		storage:  storage,
		titler:   titler,
		logger:   logger,
		timeout:  timeout,
		sessions: make(map[int64]*session),
	}
}

// Start polls for updates until ctx is cancelled. Each message is handled on
// its own goroutine so a slow request never blocks other chats.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram client")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.closeSessions()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if content == "" {
		return
	}
	b.handleQuickNote(ctx, message, content)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "login":
		b.handleLogin(ctx, message)
	case "logout":
		b.handleLogout(ctx, message)
	case "notes":
		b.handleNotes(ctx, message)
	case "refresh":
		b.handleRefresh(ctx, message)
	case "new":
		b.handleNew(ctx, message)
	case "edit":
		b.handleEdit(ctx, message)
	case "cancel":
		b.handleCancel(ctx, message)
	case "delete":
		b.handleDelete(ctx, message)
	case "search":
		b.handleSearch(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// requestContext bounds one remote round trip.
func (b *Bot) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send markdown message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// forget removes a message holding a password from the chat history.
func (b *Bot) forget(message *tgbotapi.Message) {
	del := tgbotapi.NewDeleteMessage(message.Chat.ID, message.MessageID)
	if _, err := b.sender.Request(del); err != nil {
		b.logger.Warn("Failed to delete login message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}
