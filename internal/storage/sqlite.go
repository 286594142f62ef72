package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"autopost_bot/internal/model"
	"autopost_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertWatch inserts or replaces the watch settings for a chat.
func (s *SQLite) UpsertWatch(ctx context.Context, w *model.Watch) error {
	now := time.Now().UTC().Format(timeLayout)
	var lastCheck *string
	if w.LastCheckAt != nil {
		v := w.LastCheckAt.UTC().Format(timeLayout)
		lastCheck = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watches (chat_id, enabled, interval_minutes, last_check_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   enabled = excluded.enabled,
		   interval_minutes = excluded.interval_minutes,
		   last_check_at = excluded.last_check_at`,
		w.ChatID, boolToInt(w.Enabled), w.IntervalMinutes, lastCheck, now,
	)
	if err != nil {
		return fmt.Errorf("upsert watch: %w", err)
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt, _ = time.Parse(timeLayout, now)
	}
	return nil
}

// GetWatch returns the watch settings for a chat.
func (s *SQLite) GetWatch(ctx context.Context, chatID int64) (*model.Watch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, enabled, interval_minutes, last_check_at, created_at
		 FROM watches WHERE chat_id = ?`, chatID,
	)
	w, err := scanWatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// ListDueWatches returns all enabled watches that are due for polling.
func (s *SQLite) ListDueWatches(ctx context.Context) ([]model.Watch, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, enabled, interval_minutes, last_check_at, created_at
		 FROM watches
		 WHERE enabled = 1
		   AND (last_check_at IS NULL
		        OR datetime(last_check_at, '+' || interval_minutes || ' minutes') <= datetime(?))`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query due watches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var watches []model.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, *w)
	}
	return watches, rows.Err()
}

// TouchWatch records that a chat's watch has just been polled.
func (s *SQLite) TouchWatch(ctx context.Context, chatID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE watches SET last_check_at = ? WHERE chat_id = ?`, now, chatID,
	)
	if err != nil {
		return fmt.Errorf("touch watch: %w", err)
	}
	return nil
}

// CreateNotifyFilter inserts a new filter and populates its ID and CreatedAt.
func (s *SQLite) CreateNotifyFilter(ctx context.Context, f *model.NotifyFilter) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_filters (chat_id, kind, scope, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.ChatID, string(f.Kind), string(f.Scope), f.Value, now,
	)
	if err != nil {
		return fmt.Errorf("insert filter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	f.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListNotifyFilters returns all filters belonging to the given chat.
func (s *SQLite) ListNotifyFilters(ctx context.Context, chatID int64) ([]model.NotifyFilter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, kind, scope, value, created_at FROM notify_filters WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var filters []model.NotifyFilter
	for rows.Next() {
		f, err := scanNotifyFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// GetNotifyFilter returns a single filter by its ID.
func (s *SQLite) GetNotifyFilter(ctx context.Context, id int64) (*model.NotifyFilter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, kind, scope, value, created_at FROM notify_filters WHERE id = ?`, id,
	)
	f, err := scanNotifyFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteNotifyFilter removes a filter by its ID.
func (s *SQLite) DeleteNotifyFilter(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notify_filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	return nil
}

// MarkSeen records that a history entry has been forwarded to a chat.
func (s *SQLite) MarkSeen(ctx context.Context, chatID int64, entryID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_entries (chat_id, entry_id) VALUES (?, ?)`,
		chatID, entryID,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// IsSeen checks whether a history entry has already been forwarded.
func (s *SQLite) IsSeen(ctx context.Context, chatID int64, entryID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_entries WHERE chat_id = ? AND entry_id = ?`,
		chatID, entryID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return count > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWatch(row scannable) (*model.Watch, error) {
	var w model.Watch
	var enabled int
	var lastCheck, created sql.NullString
	err := row.Scan(&w.ChatID, &enabled, &w.IntervalMinutes, &lastCheck, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan watch: %w", err)
	}
	w.Enabled = enabled == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		w.LastCheckAt = &t
	}
	if created.Valid {
		w.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &w, nil
}

func scanNotifyFilter(row scannable) (model.NotifyFilter, error) {
	var f model.NotifyFilter
	var kindStr, scopeStr, createdStr string
	err := row.Scan(&f.ID, &f.ChatID, &kindStr, &scopeStr, &f.Value, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, err
		}
		return f, fmt.Errorf("scan filter: %w", err)
	}
	f.Kind = model.FilterKind(kindStr)
	f.Scope = model.FilterScope(scopeStr)
	f.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return f, nil
}
