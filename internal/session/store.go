package session

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/contact-form-service/internal/contact"
)

// Store persists one contact form per session id.
// Get returns the stored form if present and not expired; Set stores it with a TTL.
type Store interface {
	Get(ctx context.Context, id string) (contact.Form, bool, error)
	Set(ctx context.Context, id string, form contact.Form, ttl time.Duration) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping() error
}

// InMemoryStore implements Store using a map with TTL-based expiration.
// Expired entries are removed on access.
type InMemoryStore struct {
	mu   sync.Mutex
	data map[string]storeEntry
}

type storeEntry struct {
	form      contact.Form
	expiresAt time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]storeEntry),
	}
}

// Get returns (form, true, nil) on hit and (zero, false, nil) on miss or expiry.
func (s *InMemoryStore) Get(ctx context.Context, id string) (contact.Form, bool, error) {
	if ctx.Err() != nil {
		return contact.Form{}, false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[id]
	if !ok {
		return contact.Form{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.data, id)
		return contact.Form{}, false, nil
	}
	return cloneForm(entry.form), true, nil
}

// Set stores form under id for ttl.
func (s *InMemoryStore) Set(ctx context.Context, id string, form contact.Form, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = storeEntry{
		form:      cloneForm(form),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// cloneForm copies the Errors map so callers never share it with the store.
func cloneForm(f contact.Form) contact.Form {
	errs := make(contact.Errors, len(f.Errors))
	for k, v := range f.Errors {
		errs[k] = v
	}
	f.Errors = errs
	return f
}
