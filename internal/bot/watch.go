package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"autopost_bot/internal/api"
	"autopost_bot/internal/filter"
	"autopost_bot/internal/history"
	"autopost_bot/internal/model"
	"autopost_bot/internal/storage"
)

const defaultWatchInterval = 15

func (b *Bot) handleWatch(ctx context.Context, chatID int64, args string) {
	sub, rest := splitSubcommand(args)

	switch sub {
	case "", "status":
		b.showWatch(ctx, chatID)
	case "on":
		b.enableWatch(ctx, chatID)
	case "off":
		b.disableWatch(ctx, chatID)
	case "every":
		mins, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || mins < 1 || mins > 1440 {
			b.reply(chatID, "Usage: /watch every <minutes> (1-1440)")
			return
		}
		b.setWatchInterval(ctx, chatID, mins)
	default:
		b.reply(chatID, "Usage: /watch on|off|status|every <minutes>")
	}
}

func (b *Bot) showWatch(ctx context.Context, chatID int64) {
	watch, err := b.db.GetWatch(ctx, chatID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.log.Error("get watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to read watch settings.")
		return
	}
	filters, err := b.db.ListNotifyFilters(ctx, chatID)
	if err != nil {
		b.log.Error("list notify filters", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to read notification filters.")
		return
	}
	b.reply(chatID, FormatWatch(watch, filters))
}

func (b *Bot) enableWatch(ctx context.Context, chatID int64) {
	watch, err := b.db.GetWatch(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		// First enable: mark the current history as seen so the watcher
		// only reports attempts made from now on.
		b.backfillSeen(ctx, chatID)
		watch = &model.Watch{ChatID: chatID, IntervalMinutes: defaultWatchInterval}
	} else if err != nil {
		b.log.Error("get watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to read watch settings.")
		return
	}

	watch.Enabled = true
	if err := b.db.UpsertWatch(ctx, watch); err != nil {
		b.log.Error("upsert watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to enable watching.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Watching posting history (checked every %d min). You will be notified about new attempts.", watch.IntervalMinutes))
}

func (b *Bot) disableWatch(ctx context.Context, chatID int64) {
	watch, err := b.db.GetWatch(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, "Watching is not enabled.")
		return
	}
	if err != nil {
		b.log.Error("get watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to read watch settings.")
		return
	}

	watch.Enabled = false
	if err := b.db.UpsertWatch(ctx, watch); err != nil {
		b.log.Error("upsert watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to disable watching.")
		return
	}
	b.reply(chatID, "Watching disabled.")
}

func (b *Bot) setWatchInterval(ctx context.Context, chatID int64, mins int) {
	watch, err := b.db.GetWatch(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		watch = &model.Watch{ChatID: chatID}
	} else if err != nil {
		b.log.Error("get watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to read watch settings.")
		return
	}

	watch.IntervalMinutes = mins
	if err := b.db.UpsertWatch(ctx, watch); err != nil {
		b.log.Error("upsert watch", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to update the interval.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Watch interval set to %d min.", mins))
}

func (b *Bot) backfillSeen(ctx context.Context, chatID int64) {
	page, err := b.backend.History(ctx, api.HistoryQuery{
		Page:     1,
		PageSize: history.PageSize,
		Status:   history.FilterAll,
	})
	if err != nil {
		b.log.Error("backfill history", "chat_id", chatID, "error", err)
		return
	}
	for _, entry := range page.Entries {
		if err := b.db.MarkSeen(ctx, chatID, entry.ID); err != nil {
			b.log.Error("backfill mark seen", "chat_id", chatID, "entry_id", entry.ID, "error", err)
		}
	}
}

func (b *Bot) handleWatchFilters(ctx context.Context, chatID int64) {
	filters, err := b.db.ListNotifyFilters(ctx, chatID)
	if err != nil {
		b.log.Error("list notify filters", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to read notification filters.")
		return
	}
	b.reply(chatID, FormatNotifyFilterList(filters))
}

func (b *Bot) handleAddWatchFilter(ctx context.Context, chatID int64, args string, kind model.FilterKind) {
	parsed, err := ParseFilterCommand(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if kind == model.FilterIncludeRe || kind == model.FilterExcludeRe {
		if err := filter.ValidateRegex(parsed.Value); err != nil {
			b.notify(chatID, SeverityError, fmt.Sprintf("Invalid regex: %v.", err))
			return
		}
	}

	f := &model.NotifyFilter{
		ChatID: chatID,
		Kind:   kind,
		Scope:  parsed.Scope,
		Value:  parsed.Value,
	}
	if err := b.db.CreateNotifyFilter(ctx, f); err != nil {
		b.log.Error("create notify filter", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to save the filter.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Filter F%d added: %s %s (%s)", f.ID, kind, parsed.Value, scopeLabel(parsed.Scope)))
}

func (b *Bot) handleRmWatchFilter(ctx context.Context, chatID int64, args string) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /wrmfilter <filter_id>")
		return
	}

	f, err := b.db.GetNotifyFilter(ctx, id)
	if err != nil || f.ChatID != chatID {
		b.notify(chatID, SeverityError, fmt.Sprintf("Filter F%d not found.", id))
		return
	}

	if err := b.db.DeleteNotifyFilter(ctx, id); err != nil {
		b.log.Error("delete notify filter", "chat_id", chatID, "filter_id", id, "error", err)
		b.notify(chatID, SeverityError, "Failed to remove the filter.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Filter F%d removed.", id))
}
