// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"autopost_bot/internal/model"
)

// Storage is the interface for all local persistence operations: per-chat
// watch settings, notification filters, and the set of history entries
// already forwarded to a chat.
type Storage interface {
	UpsertWatch(ctx context.Context, w *model.Watch) error
	GetWatch(ctx context.Context, chatID int64) (*model.Watch, error)
	ListDueWatches(ctx context.Context) ([]model.Watch, error)
	TouchWatch(ctx context.Context, chatID int64) error

	CreateNotifyFilter(ctx context.Context, f *model.NotifyFilter) error
	ListNotifyFilters(ctx context.Context, chatID int64) ([]model.NotifyFilter, error)
	GetNotifyFilter(ctx context.Context, id int64) (*model.NotifyFilter, error)
	DeleteNotifyFilter(ctx context.Context, id int64) error

	MarkSeen(ctx context.Context, chatID int64, entryID string) error
	IsSeen(ctx context.Context, chatID int64, entryID string) (bool, error)

	Close() error
}
