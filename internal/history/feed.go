// Package history implements the paginated, filterable feed of past
// posting attempts.
package history

import (
	"context"
	"fmt"
	"sync"

	"autopost_bot/internal/api"
	"autopost_bot/internal/model"
)

// PageSize is the fixed number of entries requested per page.
const PageSize = 20

// Status filter values accepted by the feed.
const (
	FilterAll     = "all"
	FilterSuccess = "success"
	FilterFailed  = "failed"
)

// Backend is the subset of the API client the feed depends on.
type Backend interface {
	History(ctx context.Context, q api.HistoryQuery) (*api.HistoryPage, error)
}

// Feed accumulates history pages. Changing the filter or search term, or
// reopening the feed, resets the accumulation to the new first page;
// LoadMore appends. Whether more pages exist is taken from the
// server-declared total page count, never guessed from page fullness.
type Feed struct {
	backend Backend

	mu       sync.Mutex
	entries  []model.HistoryEntry
	page     int
	status   string
	search   string
	hasMore  bool
	inFlight bool
}

// New creates an empty feed with the all-statuses filter.
func New(backend Backend) *Feed {
	return &Feed{backend: backend, status: FilterAll}
}

// Entries returns a copy of the accumulated entries.
func (f *Feed) Entries() []model.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.HistoryEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// HasMore reports whether the server declared additional pages.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// Status returns the active status filter.
func (f *Feed) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Search returns the active search term.
func (f *Feed) Search() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search
}

// Page returns the last fetched page number, zero before the first load.
func (f *Feed) Page() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

// Open resets to the first page and replaces the accumulated entries,
// keeping the current filter and search term. On failure the previous
// accumulation is left intact.
func (f *Feed) Open(ctx context.Context) error {
	return f.reload(ctx)
}

// SetStatus switches the status filter and reloads from the first page.
func (f *Feed) SetStatus(ctx context.Context, status string) error {
	switch status {
	case FilterAll, FilterSuccess, FilterFailed:
	default:
		return fmt.Errorf("unknown status filter %q", status)
	}
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
	return f.reload(ctx)
}

// SetSearch applies a search term and reloads from the first page.
// An empty term clears the search.
func (f *Feed) SetSearch(ctx context.Context, term string) error {
	f.mu.Lock()
	f.search = term
	f.mu.Unlock()
	return f.reload(ctx)
}

// LoadMore fetches the next page and appends it to the accumulation.
// It is a no-op while another fetch is in flight, and when the server
// declared no further pages.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.inFlight || !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	f.inFlight = true
	next := f.page + 1
	q := f.queryLocked(next)
	f.mu.Unlock()

	page, err := f.backend.History(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		return err
	}
	f.entries = append(f.entries, page.Entries...)
	f.page = next
	f.hasMore = next < page.TotalPages
	return nil
}

func (f *Feed) reload(ctx context.Context) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil
	}
	f.inFlight = true
	q := f.queryLocked(1)
	f.mu.Unlock()

	page, err := f.backend.History(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		return err
	}
	f.entries = page.Entries
	f.page = 1
	f.hasMore = 1 < page.TotalPages
	return nil
}

func (f *Feed) queryLocked(page int) api.HistoryQuery {
	return api.HistoryQuery{
		Page:     page,
		PageSize: PageSize,
		Status:   f.status,
		Search:   f.search,
	}
}
