// Package watcher polls the backend posting history and forwards new
// attempts to watching chats as Telegram notifications.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"autopost_bot/internal/api"
	"autopost_bot/internal/bot"
	"autopost_bot/internal/filter"
	"autopost_bot/internal/model"
	"autopost_bot/internal/storage"
)

// Backend is the subset of the API client the watcher depends on.
type Backend interface {
	History(ctx context.Context, q api.HistoryQuery) (*api.HistoryPage, error)
}

// Sender is the interface for sending Telegram messages.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// Watcher periodically fetches recent posting attempts and notifies
// each watching chat about entries it has not seen yet, after applying
// the chat's notification filters.
type Watcher struct {
	store   storage.Storage
	backend Backend
	sender  Sender
	log     *slog.Logger
	tick    time.Duration
}

// New creates a Watcher polling on a 1-minute tick.
func New(store storage.Storage, backend Backend, sender Sender, log *slog.Logger) *Watcher {
	return &Watcher{
		store:   store,
		backend: backend,
		sender:  sender,
		log:     log,
		tick:    1 * time.Minute,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (w *Watcher) SetTickInterval(d time.Duration) {
	w.tick = d
}

// Run starts the watcher loop, blocking until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.checkAll(ctx)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAll(ctx)
		}
	}
}

func (w *Watcher) checkAll(ctx context.Context) {
	watches, err := w.store.ListDueWatches(ctx)
	if err != nil {
		w.log.Error("list due watches", "error", err)
		return
	}

	for _, watch := range watches {
		if ctx.Err() != nil {
			return
		}
		w.processWatch(ctx, watch)
	}
}

func (w *Watcher) processWatch(ctx context.Context, watch model.Watch) {
	w.log.Debug("checking history", "chat_id", watch.ChatID)

	page, err := w.backend.History(ctx, api.HistoryQuery{
		Page:     1,
		PageSize: 20,
		Status:   "all",
	})
	if err != nil {
		w.log.Error("fetch history", "chat_id", watch.ChatID, "error", err)
		w.touch(ctx, watch.ChatID)
		return
	}

	filters, err := w.store.ListNotifyFilters(ctx, watch.ChatID)
	if err != nil {
		w.log.Error("list notify filters", "chat_id", watch.ChatID, "error", err)
		return
	}

	sent := 0
	// Entries arrive newest first; notify in chronological order.
	for i := len(page.Entries) - 1; i >= 0; i-- {
		entry := page.Entries[i]

		seen, err := w.store.IsSeen(ctx, watch.ChatID, entry.ID)
		if err != nil {
			w.log.Error("check seen", "chat_id", watch.ChatID, "entry_id", entry.ID, "error", err)
			continue
		}
		if seen {
			continue
		}

		if !filter.Match(filter.Entry{RuleName: entry.RuleName, Message: entry.Message}, filters) {
			continue
		}

		w.sender.SendMessage(watch.ChatID, bot.FormatHistoryNotification(entry))
		sent++

		if err := w.store.MarkSeen(ctx, watch.ChatID, entry.ID); err != nil {
			w.log.Error("mark seen", "chat_id", watch.ChatID, "entry_id", entry.ID, "error", err)
		}

		// Rate limit: ~20 messages/sec max for Telegram
		time.Sleep(50 * time.Millisecond)
	}

	if sent > 0 {
		w.log.Info("sent history notifications", "chat_id", watch.ChatID, "count", sent)
	}

	w.touch(ctx, watch.ChatID)
}

func (w *Watcher) touch(ctx context.Context, chatID int64) {
	if err := w.store.TouchWatch(ctx, chatID); err != nil {
		w.log.Error("update last check", "chat_id", chatID, "error", err)
	}
}
