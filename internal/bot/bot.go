// Package bot implements the Telegram frontend for the auto-posting
// backend: rule management, the rule editor, and the history feed.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autopost_bot/internal/api"
	"autopost_bot/internal/config"
	"autopost_bot/internal/editor"
	"autopost_bot/internal/fetcher"
	"autopost_bot/internal/history"
	"autopost_bot/internal/model"
	"autopost_bot/internal/rules"
	"autopost_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Backend is the full API surface the bot depends on.
type Backend interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
	CreateRule(ctx context.Context, p api.RulePayload) error
	UpdateRule(ctx context.Context, id string, p api.RulePayload) error
	DeleteRule(ctx context.Context, id string) error
	ListChannels(ctx context.Context) ([]model.Channel, error)
	History(ctx context.Context, q api.HistoryQuery) (*api.HistoryPage, error)
}

// viewMode is the tri-mode view the bot presents per chat.
type viewMode int

const (
	modeRules viewMode = iota
	modeEditor
	modeLogs
)

// session holds the per-chat UI state: the active view, the in-progress
// rule form, the channel list snapshot the form is validated against,
// and the chat's history feed.
type session struct {
	mode     viewMode
	form     *editor.Form
	channels []model.Channel
	feed     *history.Feed
}

// Bot is the Telegram bot that manages auto-posting rules and browses
// the posting history.
type Bot struct {
	api      telegramAPI
	backend  Backend
	store    *rules.Store
	db       storage.Storage
	cfg      *config.Config
	fetcher  *fetcher.Fetcher
	notifier *Notifier
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// New creates a Bot with the given Telegram token, backend client,
// rule store, and local storage.
func New(token string, backend Backend, store *rules.Store, db storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      tg,
		backend:  backend,
		store:    store,
		db:       db,
		cfg:      cfg,
		fetcher:  fetcher.New(http.DefaultClient),
		notifier: NewNotifier(tg, log),
		log:      log,
		sessions: make(map[int64]*session),
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// session returns the chat's session, creating it in list mode if needed.
func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{mode: modeRules, feed: history.New(b.backend)}
		b.sessions[chatID] = s
	}
	return s
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "rules":
		b.handleRules(ctx, chatID)
	case "new":
		b.handleNew(ctx, chatID)
	case "edit":
		b.handleEdit(ctx, chatID, args)
	case cmdDelete:
		b.handleDeleteConfirm(chatID, args)
	case "channels":
		b.handleChannels(ctx, chatID)
	case "set":
		b.handleSet(chatID, args)
	case "kw":
		b.handleKeywords(chatID, args)
	case "src":
		b.handleSources(ctx, chatID, args)
	case "btn":
		b.handleButtons(chatID, args)
	case "show":
		b.handleShow(chatID)
	case "save":
		b.handleSave(ctx, chatID)
	case "cancel":
		b.handleCancel(chatID)
	case cmdLogs:
		b.handleLogs(ctx, chatID)
	case "find":
		b.handleFind(ctx, chatID, args)
	case cmdMore:
		b.handleLoadMore(ctx, chatID)
	case "watch":
		b.handleWatch(ctx, chatID, args)
	case "wfilters":
		b.handleWatchFilters(ctx, chatID)
	case "winclude":
		b.handleAddWatchFilter(ctx, chatID, args, model.FilterInclude)
	case "wexclude":
		b.handleAddWatchFilter(ctx, chatID, args, model.FilterExclude)
	case "winclude_re":
		b.handleAddWatchFilter(ctx, chatID, args, model.FilterIncludeRe)
	case "wexclude_re":
		b.handleAddWatchFilter(ctx, chatID, args, model.FilterExcludeRe)
	case "wrmfilter":
		b.handleRmWatchFilter(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
