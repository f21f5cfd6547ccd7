package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"guestlist/cmd/internal/errs"
)

// MemoryStore is the directory used when no database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]Event
	users     map[string]User
	templates map[string]Template
}

// Seed is the JSON shape accepted by LoadSeed.
type Seed struct {
	Users     []User     `json:"users"`
	Events    []Event    `json:"events"`
	Templates []Template `json:"templates"`
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]Event),
		users:     make(map[string]User),
		templates: make(map[string]Template),
	}
}

// LoadSeed reads a Seed JSON file into the store.
func (s *MemoryStore) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("directory: read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("directory: decode seed: %w", err)
	}
	for _, u := range seed.Users {
		s.PutUser(u)
	}
	for _, e := range seed.Events {
		s.PutEvent(e)
	}
	for _, t := range seed.Templates {
		s.PutTemplate(t)
	}
	return nil
}

// PutEvent inserts or replaces an event.
func (s *MemoryStore) PutEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

// PutUser inserts or replaces a user.
func (s *MemoryStore) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutTemplate inserts or replaces a template.
func (s *MemoryStore) PutTemplate(t Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.Slug] = t
}

// GetEvent fetches an event by id.
func (s *MemoryStore) GetEvent(ctx context.Context, id string) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[strings.TrimSpace(id)]
	if !ok {
		return Event{}, errs.NotFound("directory.GetEvent", "event")
	}
	return e, nil
}

// GetUser fetches a user by id.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.TrimSpace(id)]
	if !ok {
		return User{}, errs.NotFound("directory.GetUser", "user")
	}
	return u, nil
}

// GetTemplate fetches a template by slug.
func (s *MemoryStore) GetTemplate(ctx context.Context, slug string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[strings.TrimSpace(slug)]
	if !ok {
		return Template{}, errs.NotFound("directory.GetTemplate", "template")
	}
	return t, nil
}
