package editor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"autopost_bot/internal/api"
	"autopost_bot/internal/model"
)

var testChannels = []model.Channel{
	{ID: "c1", Username: "news", Title: "News Channel"},
	{Username: "unlinked"},
}

func TestNewDefaults(t *testing.T) {
	f := New(testChannels)

	want := &Form{
		Status:             model.StatusActive,
		Frequency:          model.FrequencyDaily,
		CustomInterval:     1,
		CustomTimeUnit:     model.UnitHours,
		PreferredTime:      "12:00",
		PreferredDays:      []string{"monday", "wednesday", "friday"},
		ChannelID:          "c1",
		ImageGeneration:    true,
		AvoidDuplication:   true,
		DuplicateCheckDays: 7,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("New mismatch (-want +got):\n%s", diff)
	}
}

func TestNewWithoutChannels(t *testing.T) {
	f := New(nil)
	if f.ChannelID != "" {
		t.Errorf("expected empty channel selection, got %q", f.ChannelID)
	}
}

func TestNewPrefersStorageID(t *testing.T) {
	f := New([]model.Channel{{Username: "only-handle"}})
	if f.ChannelID != "only-handle" {
		t.Errorf("expected username fallback, got %q", f.ChannelID)
	}
}

func TestFromRuleVerbatim(t *testing.T) {
	r := model.Rule{
		ID:                 "r1",
		Name:               "Evening digest",
		Topic:              "devops",
		Status:             model.StatusInactive,
		Frequency:          model.FrequencyWeekly,
		CustomInterval:     4,
		CustomTimeUnit:     model.UnitDays,
		PreferredTime:      "18:30",
		PreferredDays:      []string{"tuesday", "thursday"},
		ChannelID:          "c1",
		ImageGeneration:    false,
		Keywords:           []string{"k8s"},
		SourceURLs:         []string{"https://example.com/feed"},
		Buttons:            []model.Button{{Text: "Open", URL: "https://example.com"}},
		AvoidDuplication:   true,
		DuplicateCheckDays: 14,
	}

	f := FromRule(r)
	if f.RuleID != "r1" || f.Name != "Evening digest" || f.PreferredTime != "18:30" {
		t.Errorf("expected verbatim copy, got %+v", f)
	}
	if diff := cmp.Diff(r.PreferredDays, f.PreferredDays); diff != "" {
		t.Errorf("preferred days mismatch (-want +got):\n%s", diff)
	}

	// Mutating the form must not touch the source rule.
	f.PreferredDays[0] = "sunday"
	if r.PreferredDays[0] != "tuesday" {
		t.Error("form mutation leaked into source rule")
	}
}

func TestFromRuleFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		rule  model.Rule
		check func(t *testing.T, f *Form)
	}{
		{
			name: "empty optionals",
			rule: model.Rule{ID: "r1", Name: "N", Topic: "T"},
			check: func(t *testing.T, f *Form) {
				if f.Status != model.StatusActive {
					t.Errorf("status = %q", f.Status)
				}
				if f.Frequency != model.FrequencyDaily {
					t.Errorf("frequency = %q", f.Frequency)
				}
				if f.CustomInterval != 1 || f.CustomTimeUnit != model.UnitHours {
					t.Errorf("interval = %d %s", f.CustomInterval, f.CustomTimeUnit)
				}
				if f.PreferredTime != "12:00" {
					t.Errorf("preferred time = %q", f.PreferredTime)
				}
				if diff := cmp.Diff(DefaultPreferredDays, f.PreferredDays); diff != "" {
					t.Errorf("preferred days mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "dedup window out of range",
			rule: model.Rule{ID: "r1", DuplicateCheckDays: 90},
			check: func(t *testing.T, f *Form) {
				if f.DuplicateCheckDays != 7 {
					t.Errorf("dedup window = %d", f.DuplicateCheckDays)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, FromRule(tt.rule))
		})
	}
}

func TestValidateOrder(t *testing.T) {
	valid := func() *Form {
		f := New(testChannels)
		f.Name = "Daily"
		f.Topic = "tech"
		return f
	}

	tests := []struct {
		name    string
		mutate  func(f *Form)
		wantErr error
	}{
		{name: "valid", mutate: func(f *Form) {}, wantErr: nil},
		{
			name:    "empty name first",
			mutate:  func(f *Form) { f.Name = "  "; f.Topic = ""; f.ChannelID = "" },
			wantErr: ErrNameRequired,
		},
		{
			name:    "empty topic before channel",
			mutate:  func(f *Form) { f.Topic = ""; f.ChannelID = "" },
			wantErr: ErrTopicRequired,
		},
		{
			name:    "no channel selected",
			mutate:  func(f *Form) { f.ChannelID = "" },
			wantErr: ErrChannelRequired,
		},
		{
			name:    "stale channel selection",
			mutate:  func(f *Form) { f.ChannelID = "removed-channel" },
			wantErr: ErrChannelUnknown,
		},
		{
			name: "weekly without days",
			mutate: func(f *Form) {
				f.Frequency = model.FrequencyWeekly
				f.PreferredDays = nil
			},
			wantErr: ErrNoDaysSelected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(f)
			if err := f.Validate(testChannels); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPayloadDaily(t *testing.T) {
	f := New(testChannels)
	f.Name = "Daily"
	f.Topic = "tech"
	f.PreferredTime = "09:00"

	got, err := f.Payload(testChannels)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	want := api.RulePayload{
		Name:               "Daily",
		Topic:              "tech",
		Status:             "active",
		Frequency:          "daily",
		PreferredTime:      "09:00",
		PreferredDays:      model.Weekdays,
		ChannelID:          "c1",
		ImageGeneration:    true,
		Keywords:           []string{},
		SourceURLs:         []string{},
		Buttons:            []api.ButtonPayload{},
		AvoidDuplication:   true,
		DuplicateCheckDays: 7,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("daily payload mismatch (-want +got):\n%s", diff)
	}
	if got.CustomInterval != 0 || got.CustomTimeUnit != "" {
		t.Error("daily rules must not carry a custom interval")
	}
}

func TestPayloadWeekly(t *testing.T) {
	f := New(testChannels)
	f.Name = "Weekly"
	f.Topic = "tech"
	f.Frequency = model.FrequencyWeekly
	f.PreferredTime = "08:15"
	f.PreferredDays = []string{"monday", "friday"}

	got, err := f.Payload(testChannels)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if diff := cmp.Diff([]string{"monday", "friday"}, got.PreferredDays); diff != "" {
		t.Errorf("weekly days mismatch (-want +got):\n%s", diff)
	}
	if got.PreferredTime != "08:15" {
		t.Errorf("preferred time = %q", got.PreferredTime)
	}
	if got.CustomInterval != 0 {
		t.Error("weekly rules must not carry a custom interval")
	}
}

func TestPayloadCustom(t *testing.T) {
	f := New(testChannels)
	f.Name = "Custom"
	f.Topic = "tech"
	f.Frequency = model.FrequencyCustom
	f.CustomInterval = 6
	f.CustomTimeUnit = model.UnitHours
	f.PreferredTime = "21:00" // user-entered time is ignored for custom

	got, err := f.Payload(testChannels)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.CustomInterval != 6 || got.CustomTimeUnit != "hours" {
		t.Errorf("interval = %d %s", got.CustomInterval, got.CustomTimeUnit)
	}
	if got.PreferredTime != "12:00" {
		t.Errorf("expected fixed 12:00, got %q", got.PreferredTime)
	}
	if diff := cmp.Diff(model.Weekdays, got.PreferredDays); diff != "" {
		t.Errorf("expected all seven days (-want +got):\n%s", diff)
	}
}

func TestPayloadResolvesChannelByUsername(t *testing.T) {
	f := New(testChannels)
	f.Name = "N"
	f.Topic = "T"
	f.ChannelID = "unlinked"

	got, err := f.Payload(testChannels)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.ChannelID != "unlinked" {
		t.Errorf("channel = %q", got.ChannelID)
	}

	// A username selection that maps to a stored channel resolves to
	// the storage identifier.
	f.ChannelID = "news"
	got, err = f.Payload(testChannels)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.ChannelID != "c1" {
		t.Errorf("expected storage ID c1, got %q", got.ChannelID)
	}
}

func TestPayloadRejectsInvalidForm(t *testing.T) {
	f := New(testChannels)
	f.Topic = "tech"

	if _, err := f.Payload(testChannels); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
}

func TestRoundTripEditKeepsPayloadStable(t *testing.T) {
	f := New(testChannels)
	f.Name = "Weekly"
	f.Topic = "tech"
	f.Frequency = model.FrequencyWeekly
	f.PreferredDays = []string{"monday", "friday"}
	if err := f.AddKeyword("release"); err != nil {
		t.Fatalf("add keyword: %v", err)
	}

	first, err := f.Payload(testChannels)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	// Re-open the saved rule and save again without changes.
	saved := model.Rule{
		ID:                 "r1",
		Name:               first.Name,
		Topic:              first.Topic,
		Status:             model.RuleStatus(first.Status),
		Frequency:          model.Frequency(first.Frequency),
		PreferredTime:      first.PreferredTime,
		PreferredDays:      first.PreferredDays,
		ChannelID:          first.ChannelID,
		ImageGeneration:    first.ImageGeneration,
		Keywords:           first.Keywords,
		SourceURLs:         first.SourceURLs,
		AvoidDuplication:   first.AvoidDuplication,
		DuplicateCheckDays: first.DuplicateCheckDays,
	}
	second, err := FromRule(saved).Payload(testChannels)
	if err != nil {
		t.Fatalf("second payload: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("payload changed across edit round trip (-want +got):\n%s", diff)
	}
}

func TestKeywordList(t *testing.T) {
	f := New(testChannels)

	if err := f.AddKeyword("  "); !errors.Is(err, ErrKeywordEmpty) {
		t.Errorf("expected ErrKeywordEmpty, got %v", err)
	}
	if err := f.AddKeyword(" go "); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.AddKeyword("go"); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "go"}, f.Keywords); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}

	if err := f.RemoveKeyword(5); !errors.Is(err, ErrNoSuchItem) {
		t.Errorf("expected ErrNoSuchItem, got %v", err)
	}
	if err := f.RemoveKeyword(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(f.Keywords) != 1 {
		t.Errorf("expected 1 keyword, got %d", len(f.Keywords))
	}
}

func TestSourceURLValidation(t *testing.T) {
	f := New(testChannels)

	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "https://example.com/a", wantErr: false},
		{url: "http://example.com", wantErr: false},
		{url: "not-a-url", wantErr: true},
		{url: "/relative/path", wantErr: true},
		{url: "https://", wantErr: true},
		{url: "", wantErr: true},
	}

	for _, tt := range tests {
		err := f.AddSourceURL(tt.url)
		if tt.wantErr && !errors.Is(err, ErrInvalidSourceURL) {
			t.Errorf("AddSourceURL(%q) = %v, want ErrInvalidSourceURL", tt.url, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("AddSourceURL(%q) = %v", tt.url, err)
		}
	}
	if diff := cmp.Diff([]string{"https://example.com/a", "http://example.com"}, f.SourceURLs); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestButtons(t *testing.T) {
	f := New(testChannels)

	if err := f.AddButton("", "https://example.com"); !errors.Is(err, ErrButtonIncomplete) {
		t.Errorf("expected ErrButtonIncomplete, got %v", err)
	}
	if err := f.AddButton("Read", ""); !errors.Is(err, ErrButtonIncomplete) {
		t.Errorf("expected ErrButtonIncomplete, got %v", err)
	}
	if err := f.AddButton("Read", "https://example.com"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.RemoveButton(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.RemoveButton(0); !errors.Is(err, ErrNoSuchItem) {
		t.Errorf("expected ErrNoSuchItem, got %v", err)
	}
}
