// Package rules maintains the client-side mirror of the backend rule set.
package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"autopost_bot/internal/api"
	"autopost_bot/internal/model"
)

// ErrBusy is returned when a create/update/delete is attempted while a
// previous submission is still in flight.
var ErrBusy = errors.New("another submission is in progress")

// Backend is the subset of the API client the store depends on.
type Backend interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
	CreateRule(ctx context.Context, p api.RulePayload) error
	UpdateRule(ctx context.Context, id string, p api.RulePayload) error
	DeleteRule(ctx context.Context, id string) error
}

// Store holds the last known-good rule set fetched from the backend.
// It never mutates the set speculatively: every successful write goes
// through a full Refresh so backend-computed fields (identifiers,
// next scheduled times) are always authoritative.
type Store struct {
	backend Backend

	mu    sync.Mutex
	rules []model.Rule
	busy  bool
}

// New creates a Store backed by the given API client.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Rules returns a copy of the cached rule set.
func (s *Store) Rules() []model.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Get returns the cached rule with the given identifier.
func (s *Store) Get(id string) (model.Rule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return model.Rule{}, false
}

// Refresh replaces the cached set with the backend's current rules.
// On failure the previous set is left intact.
func (s *Store) Refresh(ctx context.Context) error {
	fetched, err := s.backend.ListRules(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rules = fetched
	s.mu.Unlock()
	return nil
}

// Create submits a new rule and resynchronizes the cached set.
func (s *Store) Create(ctx context.Context, p api.RulePayload) error {
	return s.submit(ctx, func() error {
		return s.backend.CreateRule(ctx, p)
	})
}

// Update submits a full replacement of an existing rule's fields and
// resynchronizes the cached set.
func (s *Store) Update(ctx context.Context, id string, p api.RulePayload) error {
	return s.submit(ctx, func() error {
		return s.backend.UpdateRule(ctx, id, p)
	})
}

// Delete removes a rule and resynchronizes the cached set. The caller
// is responsible for confirming the deletion with the user first.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.submit(ctx, func() error {
		return s.backend.DeleteRule(ctx, id)
	})
}

// submit runs one write call under the single-flight guard. The cached
// set is only touched by the Refresh that follows a successful write.
func (s *Store) submit(ctx context.Context, write func() error) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if err := write(); err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("resynchronize rules: %w", err)
	}
	return nil
}
