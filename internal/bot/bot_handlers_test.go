package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"autopost_bot/internal/api"
	"autopost_bot/internal/config"
	"autopost_bot/internal/fetcher"
	"autopost_bot/internal/model"
	"autopost_bot/internal/rules"
	"autopost_bot/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.mu.Lock()
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
		m.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) Request(_ tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

func (m *mockAPI) allTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Text
	}
	return out
}

type fakeBackend struct {
	mu       sync.Mutex
	rules    []model.Rule
	channels []model.Channel
	history  []model.HistoryEntry
	totalPgs int

	creates []api.RulePayload
	updates map[string]api.RulePayload
	deletes []string
}

func (f *fakeBackend) ListRules(ctx context.Context) ([]model.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Rule, len(f.rules))
	copy(out, f.rules)
	return out, nil
}

func (f *fakeBackend) CreateRule(ctx context.Context, p api.RulePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, p)
	return nil
}

func (f *fakeBackend) UpdateRule(ctx context.Context, id string, p api.RulePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]api.RulePayload)
	}
	f.updates[id] = p
	return nil
}

func (f *fakeBackend) DeleteRule(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) ListChannels(ctx context.Context) ([]model.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels, nil
}

func (f *fakeBackend) History(ctx context.Context, q api.HistoryQuery) (*api.HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &api.HistoryPage{Entries: f.history, TotalPages: f.totalPgs}, nil
}

// --- helpers ---

func newTestBot(t *testing.T, backend *fakeBackend) (*Bot, *mockAPI) {
	t.Helper()
	db, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tg := &mockAPI{}
	b := &Bot{
		api:      tg,
		backend:  backend,
		store:    rules.New(backend),
		db:       db,
		cfg:      &config.Config{},
		fetcher:  fetcher.New(nil),
		notifier: NewNotifier(tg, log),
		log:      log,
		sessions: make(map[int64]*session),
	}
	return b, tg
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("expected message containing %q, got:\n%s", want, got)
	}
}

var chatChannels = []model.Channel{{ID: "c1", Username: "news", Title: "News Channel"}}

const chatID = int64(1000)

// --- tests ---

func TestCreateRuleFlow(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{channels: chatChannels}
	b, tg := newTestBot(t, backend)

	b.handleNew(ctx, chatID)
	requireContains(t, tg.lastText(), "New rule (unsaved)")

	b.handleSet(chatID, "name Morning digest")
	b.handleSet(chatID, "topic golang news")
	b.handleSet(chatID, "time 09:00")
	requireContains(t, tg.lastText(), "daily at 09:00")

	b.handleSave(ctx, chatID)

	if len(backend.creates) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(backend.creates))
	}
	got := backend.creates[0]
	if got.Name != "Morning digest" || got.Topic != "golang news" || got.ChannelID != "c1" {
		t.Errorf("unexpected payload %+v", got)
	}
	if got.Frequency != "daily" || got.PreferredTime != "09:00" {
		t.Errorf("unexpected schedule in payload %+v", got)
	}
	if diff := cmp.Diff(model.Weekdays, got.PreferredDays); diff != "" {
		t.Errorf("daily rule days mismatch (-want +got):\n%s", diff)
	}

	requireContains(t, strings.Join(tg.allTexts(), "\n"), "Rule saved.")

	// Editor closed after save.
	if sess := b.session(chatID); sess.form != nil || sess.mode != modeRules {
		t.Error("expected editor to close after save")
	}
}

func TestSaveValidationFailureMakesNoNetworkCall(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{channels: chatChannels}
	b, tg := newTestBot(t, backend)

	b.handleNew(ctx, chatID)
	b.handleSet(chatID, "topic tech")
	b.handleSave(ctx, chatID)

	if len(backend.creates) != 0 {
		t.Fatalf("expected no create call, got %d", len(backend.creates))
	}
	requireContains(t, tg.lastText(), "Rule name cannot be empty")

	// The editor stays open so the user can correct and retry.
	if sess := b.session(chatID); sess.form == nil {
		t.Fatal("expected form to stay open after validation failure")
	}

	b.handleSet(chatID, "name Fixed")
	b.handleSave(ctx, chatID)
	if len(backend.creates) != 1 {
		t.Errorf("expected save to succeed after correction, got %d creates", len(backend.creates))
	}
}

func TestEditRuleFlow(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		channels: chatChannels,
		rules: []model.Rule{{
			ID:            "r1",
			Name:          "Evening digest",
			Topic:         "devops",
			Status:        model.StatusActive,
			Frequency:     model.FrequencyDaily,
			PreferredTime: "18:00",
			ChannelID:     "c1",
		}},
	}
	b, tg := newTestBot(t, backend)

	b.handleEdit(ctx, chatID, "r1")
	requireContains(t, tg.lastText(), "Editing rule r1")
	requireContains(t, tg.lastText(), "Evening digest")

	b.handleSet(chatID, "freq weekly")
	b.handleSet(chatID, "days mon,fri")
	b.handleSave(ctx, chatID)

	got, ok := backend.updates["r1"]
	if !ok {
		t.Fatalf("expected update for r1, got %v", backend.updates)
	}
	if got.Frequency != "weekly" {
		t.Errorf("frequency = %q", got.Frequency)
	}
	if diff := cmp.Diff([]string{"monday", "friday"}, got.PreferredDays); diff != "" {
		t.Errorf("days mismatch (-want +got):\n%s", diff)
	}
	if len(backend.creates) != 0 {
		t.Error("editing an existing rule must not create a new one")
	}
}

func TestEditUnknownRule(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{channels: chatChannels}
	b, tg := newTestBot(t, backend)

	b.handleEdit(ctx, chatID, "missing")
	requireContains(t, tg.lastText(), "Rule missing not found.")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		channels: chatChannels,
		rules:    []model.Rule{{ID: "r1", Name: "Morning digest", Status: model.StatusActive}},
	}
	b, tg := newTestBot(t, backend)
	if err := b.store.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	b.handleDeleteConfirm(chatID, "r1")
	requireContains(t, tg.lastText(), `Delete rule "Morning digest"?`)
	if len(backend.deletes) != 0 {
		t.Fatal("confirmation prompt must not delete anything")
	}

	// Confirmation accepted.
	b.handleDelete(ctx, chatID, "r1")
	if diff := cmp.Diff([]string{"r1"}, backend.deletes); diff != "" {
		t.Errorf("deletes mismatch (-want +got):\n%s", diff)
	}
	requireContains(t, strings.Join(tg.allTexts(), "\n"), "Rule deleted.")
	requireContains(t, tg.lastText(), "no posting rules")
}

func TestRulesListSurvivesRefreshFailure(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		rules: []model.Rule{{ID: "r1", Name: "Morning digest", Status: model.StatusActive}},
	}
	b, tg := newTestBot(t, backend)
	if err := b.store.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	b.handleRules(ctx, chatID)
	requireContains(t, tg.lastText(), "Morning digest")
}

func TestCancelDiscardsForm(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{channels: chatChannels}
	b, tg := newTestBot(t, backend)

	b.handleNew(ctx, chatID)
	b.handleSet(chatID, "name Draft")
	b.handleCancel(chatID)

	requireContains(t, tg.lastText(), "Nothing was saved.")
	if sess := b.session(chatID); sess.form != nil {
		t.Error("expected form to be discarded")
	}

	b.handleShow(chatID)
	requireContains(t, tg.lastText(), "Nothing is being edited.")
}

func TestLogsFlow(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		history: []model.HistoryEntry{
			{ID: "h1", RuleName: "Morning digest", Status: model.HistorySuccess, Message: "Posted"},
			{ID: "h2", RuleName: "Evening digest", Status: model.HistoryFailed, Message: "channel unreachable"},
		},
		totalPgs: 2,
	}
	b, tg := newTestBot(t, backend)

	b.handleLogs(ctx, chatID)
	last := tg.lastText()
	requireContains(t, last, "Posting history (all)")
	requireContains(t, last, "Morning digest")
	requireContains(t, last, "[x]")
	requireContains(t, last, "More entries available")

	b.handleFind(ctx, chatID, "digest")
	requireContains(t, tg.lastText(), `search: "digest"`)

	b.handleFilter(ctx, chatID, "failed")
	requireContains(t, tg.lastText(), "Posting history (failed")

	b.handleLoadMore(ctx, chatID)
	sess := b.session(chatID)
	if got := len(sess.feed.Entries()); got != 4 {
		t.Errorf("expected 4 accumulated entries, got %d", got)
	}
}

func TestLoadMoreOutsideLogs(t *testing.T) {
	backend := &fakeBackend{}
	b, tg := newTestBot(t, backend)

	b.handleLoadMore(context.Background(), chatID)
	requireContains(t, tg.lastText(), "Open the history first with /logs.")
}

func TestLoadMoreExhausted(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		history:  []model.HistoryEntry{{ID: "h1", RuleName: "Digest", Status: model.HistorySuccess}},
		totalPgs: 1,
	}
	b, tg := newTestBot(t, backend)

	b.handleLogs(ctx, chatID)
	b.handleLoadMore(ctx, chatID)
	requireContains(t, tg.lastText(), "No more history entries.")
}

func TestWatchEnableBackfillsSeen(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		history: []model.HistoryEntry{
			{ID: "h1", RuleName: "Digest", Status: model.HistorySuccess},
			{ID: "h2", RuleName: "Digest", Status: model.HistoryFailed},
		},
		totalPgs: 1,
	}
	b, tg := newTestBot(t, backend)

	b.handleWatch(ctx, chatID, "on")
	requireContains(t, tg.lastText(), "Watching posting history")

	w, err := b.db.GetWatch(ctx, chatID)
	if err != nil {
		t.Fatalf("get watch: %v", err)
	}
	if !w.Enabled || w.IntervalMinutes != defaultWatchInterval {
		t.Errorf("unexpected watch %+v", w)
	}

	for _, id := range []string{"h1", "h2"} {
		seen, err := b.db.IsSeen(ctx, chatID, id)
		if err != nil {
			t.Fatalf("is seen: %v", err)
		}
		if !seen {
			t.Errorf("expected %s to be backfilled as seen", id)
		}
	}

	b.handleWatch(ctx, chatID, "off")
	requireContains(t, tg.lastText(), "Watching disabled.")
}

func TestWatchInterval(t *testing.T) {
	ctx := context.Background()
	b, tg := newTestBot(t, &fakeBackend{totalPgs: 1})

	b.handleWatch(ctx, chatID, "every 90")
	requireContains(t, tg.lastText(), "Watch interval set to 90 min.")

	b.handleWatch(ctx, chatID, "every 5000")
	requireContains(t, tg.lastText(), "Usage: /watch every <minutes> (1-1440)")
}

func TestWatchFilterCommands(t *testing.T) {
	ctx := context.Background()
	b, tg := newTestBot(t, &fakeBackend{})

	b.handleAddWatchFilter(ctx, chatID, "-s rule release", model.FilterInclude)
	requireContains(t, tg.lastText(), "Filter F1 added: include release (rule name only)")

	b.handleAddWatchFilter(ctx, chatID, "[invalid", model.FilterIncludeRe)
	requireContains(t, tg.lastText(), "Invalid regex")

	b.handleWatchFilters(ctx, chatID)
	requireContains(t, tg.lastText(), "Include (word)")

	// Removing another chat's filter is rejected.
	f := &model.NotifyFilter{ChatID: 999, Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "promo"}
	if err := b.db.CreateNotifyFilter(ctx, f); err != nil {
		t.Fatalf("create filter: %v", err)
	}
	b.handleRmWatchFilter(ctx, chatID, "2")
	requireContains(t, tg.lastText(), "Filter F2 not found.")

	b.handleRmWatchFilter(ctx, chatID, "1")
	requireContains(t, tg.lastText(), "Filter F1 removed.")
}
