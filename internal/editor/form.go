// Package editor implements the rule form: a single value object holding
// everything the user has entered, validated atomically before submission.
package editor

import (
	"errors"
	"net/url"
	"strings"

	"autopost_bot/internal/api"
	"autopost_bot/internal/model"
)

// Form defaults applied on creation and for absent optional fields when
// editing an existing rule.
const (
	DefaultPreferredTime      = "12:00"
	DefaultDuplicateCheckDays = 7
	DefaultCustomInterval     = 1
	DefaultCustomTimeUnit     = model.UnitHours
)

// DefaultPreferredDays is the initial weekly-day selection.
var DefaultPreferredDays = []string{"monday", "wednesday", "friday"}

// Validation failures, each with a distinct user-visible message.
// Validate reports the first failure in order; submission must abort.
var (
	ErrNameRequired     = errors.New("rule name cannot be empty")
	ErrTopicRequired    = errors.New("rule topic cannot be empty")
	ErrChannelRequired  = errors.New("a target channel must be selected")
	ErrChannelUnknown   = errors.New("the selected channel is no longer available")
	ErrNoDaysSelected   = errors.New("weekly rules need at least one preferred day")
	ErrKeywordEmpty     = errors.New("keyword cannot be empty")
	ErrInvalidSourceURL = errors.New("source must be a valid absolute URL")
	ErrButtonIncomplete = errors.New("a button needs both text and a URL")
	ErrNoSuchItem       = errors.New("no item at that position")
)

// Form holds the in-progress state of a rule being created or edited.
// RuleID is empty while the rule is unsaved.
type Form struct {
	RuleID             string
	Name               string
	Topic              string
	Status             model.RuleStatus
	Frequency          model.Frequency
	CustomInterval     int
	CustomTimeUnit     model.TimeUnit
	PreferredTime      string
	PreferredDays      []string
	ChannelID          string
	ImageGeneration    bool
	Keywords           []string
	SourceURLs         []string
	Buttons            []model.Button
	AvoidDuplication   bool
	DuplicateCheckDays int
}

// New returns a form reset to creation defaults. The channel selection
// defaults to the first available channel, if any.
func New(channels []model.Channel) *Form {
	f := &Form{
		Status:             model.StatusActive,
		Frequency:          model.FrequencyDaily,
		CustomInterval:     DefaultCustomInterval,
		CustomTimeUnit:     DefaultCustomTimeUnit,
		PreferredTime:      DefaultPreferredTime,
		PreferredDays:      cloneStrings(DefaultPreferredDays),
		ImageGeneration:    true,
		AvoidDuplication:   true,
		DuplicateCheckDays: DefaultDuplicateCheckDays,
	}
	if len(channels) > 0 {
		f.ChannelID = channels[0].TargetID()
	}
	return f
}

// FromRule returns a form populated verbatim from an existing rule.
// Absent optional fields fall back to the creation defaults.
func FromRule(r model.Rule) *Form {
	f := &Form{
		RuleID:             r.ID,
		Name:               r.Name,
		Topic:              r.Topic,
		Status:             r.Status,
		Frequency:          r.Frequency,
		CustomInterval:     r.CustomInterval,
		CustomTimeUnit:     r.CustomTimeUnit,
		PreferredTime:      r.PreferredTime,
		PreferredDays:      cloneStrings(r.PreferredDays),
		ChannelID:          r.ChannelID,
		ImageGeneration:    r.ImageGeneration,
		Keywords:           cloneStrings(r.Keywords),
		SourceURLs:         cloneStrings(r.SourceURLs),
		Buttons:            cloneButtons(r.Buttons),
		AvoidDuplication:   r.AvoidDuplication,
		DuplicateCheckDays: r.DuplicateCheckDays,
	}
	if f.Status == "" {
		f.Status = model.StatusActive
	}
	if f.Frequency == "" {
		f.Frequency = model.FrequencyDaily
	}
	if f.CustomInterval <= 0 {
		f.CustomInterval = DefaultCustomInterval
	}
	if f.CustomTimeUnit == "" {
		f.CustomTimeUnit = DefaultCustomTimeUnit
	}
	if f.PreferredTime == "" {
		f.PreferredTime = DefaultPreferredTime
	}
	if len(f.PreferredDays) == 0 {
		f.PreferredDays = cloneStrings(DefaultPreferredDays)
	}
	if f.DuplicateCheckDays < 1 || f.DuplicateCheckDays > 30 {
		f.DuplicateCheckDays = DefaultDuplicateCheckDays
	}
	return f
}

// AddKeyword appends a tag-style keyword. Duplicates are allowed.
func (f *Form) AddKeyword(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrKeywordEmpty
	}
	f.Keywords = append(f.Keywords, s)
	return nil
}

// RemoveKeyword removes the keyword at the given zero-based index.
func (f *Form) RemoveKeyword(i int) error {
	if i < 0 || i >= len(f.Keywords) {
		return ErrNoSuchItem
	}
	f.Keywords = append(f.Keywords[:i], f.Keywords[i+1:]...)
	return nil
}

// AddSourceURL appends a content source after checking it parses as an
// absolute URL. On rejection the list is left unchanged.
func (f *Form) AddSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidSourceURL
	}
	f.SourceURLs = append(f.SourceURLs, raw)
	return nil
}

// RemoveSourceURL removes the source at the given zero-based index.
func (f *Form) RemoveSourceURL(i int) error {
	if i < 0 || i >= len(f.SourceURLs) {
		return ErrNoSuchItem
	}
	f.SourceURLs = append(f.SourceURLs[:i], f.SourceURLs[i+1:]...)
	return nil
}

// AddButton appends an inline button. Both parts must be non-empty; the
// URL is taken as entered without further validation.
func (f *Form) AddButton(text, rawURL string) error {
	text = strings.TrimSpace(text)
	rawURL = strings.TrimSpace(rawURL)
	if text == "" || rawURL == "" {
		return ErrButtonIncomplete
	}
	f.Buttons = append(f.Buttons, model.Button{Text: text, URL: rawURL})
	return nil
}

// RemoveButton removes the button at the given zero-based index.
func (f *Form) RemoveButton(i int) error {
	if i < 0 || i >= len(f.Buttons) {
		return ErrNoSuchItem
	}
	f.Buttons = append(f.Buttons[:i], f.Buttons[i+1:]...)
	return nil
}

// Validate checks the form against the externally supplied channel list
// and returns the first failure. The channel resolution check guards
// against a selection that went stale while the editor was open.
func (f *Form) Validate(channels []model.Channel) error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(f.Topic) == "" {
		return ErrTopicRequired
	}
	if f.ChannelID == "" {
		return ErrChannelRequired
	}
	if _, ok := resolveChannel(channels, f.ChannelID); !ok {
		return ErrChannelUnknown
	}
	if f.Frequency == model.FrequencyWeekly && len(f.PreferredDays) == 0 {
		return ErrNoDaysSelected
	}
	return nil
}

// Payload validates the form and assembles the flat wire shape the
// backend expects. The backend schema requires preferredTime and
// preferredDays for every frequency, so semantically unused fields are
// filled with fixed values rather than omitted:
//
//	daily:  no interval, user time, all seven days
//	weekly: no interval, user time, selected days
//	custom: user interval, fixed 12:00, all seven days
func (f *Form) Payload(channels []model.Channel) (api.RulePayload, error) {
	if err := f.Validate(channels); err != nil {
		return api.RulePayload{}, err
	}

	ch, _ := resolveChannel(channels, f.ChannelID)

	p := api.RulePayload{
		Name:               strings.TrimSpace(f.Name),
		Topic:              strings.TrimSpace(f.Topic),
		Status:             string(f.Status),
		Frequency:          string(f.Frequency),
		PreferredTime:      f.PreferredTime,
		ChannelID:          ch.TargetID(),
		ImageGeneration:    f.ImageGeneration,
		Keywords:           append([]string{}, f.Keywords...),
		SourceURLs:         append([]string{}, f.SourceURLs...),
		Buttons:            payloadButtons(f.Buttons),
		AvoidDuplication:   f.AvoidDuplication,
		DuplicateCheckDays: f.DuplicateCheckDays,
	}

	switch f.Frequency {
	case model.FrequencyWeekly:
		p.PreferredDays = cloneStrings(f.PreferredDays)
	case model.FrequencyCustom:
		p.CustomInterval = f.CustomInterval
		p.CustomTimeUnit = string(f.CustomTimeUnit)
		p.PreferredTime = DefaultPreferredTime
		p.PreferredDays = cloneStrings(model.Weekdays)
	default:
		p.PreferredDays = cloneStrings(model.Weekdays)
	}
	return p, nil
}

// resolveChannel matches a selection against the channel list by either
// identifier scheme.
func resolveChannel(channels []model.Channel, selected string) (model.Channel, bool) {
	for _, c := range channels {
		if c.ID == selected || (c.Username != "" && c.Username == selected) {
			return c, true
		}
	}
	return model.Channel{}, false
}

func payloadButtons(buttons []model.Button) []api.ButtonPayload {
	out := make([]api.ButtonPayload, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, api.ButtonPayload{Text: b.Text, URL: b.URL})
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneButtons(in []model.Button) []model.Button {
	if in == nil {
		return nil
	}
	out := make([]model.Button, len(in))
	copy(out, in)
	return out
}
