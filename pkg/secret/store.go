package secret

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultSystemName is the key namespace used when none is configured.
const DefaultSystemName = "v3-admin-vite"

// ErrWatchUnsupported is returned by Secrets.Watch when the backend cannot be watched.
var ErrWatchUnsupported = errors.New("secret store does not support watching")

// Store is a namespaced string key-value store. Get returns "" for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Watcher is implemented by stores that can report external changes.
// onChange is called after any change to the underlying data until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Keys are the namespaced cache keys derived from the product name.
type Keys struct {
	UUID            string
	Token           string
	SidebarStatus   string
	ActiveThemeName string
}

// NewKeys derives the cache keys for systemName.
func NewKeys(systemName string) Keys {
	if systemName == "" {
		systemName = DefaultSystemName
	}
	return Keys{
		UUID:            systemName + "-uuid",
		Token:           systemName + "-token",
		SidebarStatus:   systemName + "-sidebar-status-key",
		ActiveThemeName: systemName + "-active-theme-name-key",
	}
}

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

// Set stores value under key
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Secrets reads and writes the session token and session id
type Secrets struct {
	store Store
	keys  Keys
}

// New wraps store with the given keys
func New(store Store, keys Keys) *Secrets {
	return &Secrets{store: store, keys: keys}
}

// Keys returns the keys in use
func (s *Secrets) Keys() Keys {
	return s.keys
}

// InitSecret persists a freshly issued session id and token
func (s *Secrets) InitSecret(ctx context.Context, uuid, token string) error {
	if err := s.SetUUID(ctx, uuid); err != nil {
		return err
	}
	return s.SetToken(ctx, token)
}

// Clear removes the session id and token
func (s *Secrets) Clear(ctx context.Context) error {
	uuidErr := s.store.Remove(ctx, s.keys.UUID)
	tokenErr := s.store.Remove(ctx, s.keys.Token)
	if err := errors.Join(uuidErr, tokenErr); err != nil {
		return fmt.Errorf("failed to clear session secrets: %w", err)
	}
	return nil
}

// HasToken reports whether both a session id and a token are present.
// Read failures count as absent.
func (s *Secrets) HasToken(ctx context.Context) bool {
	uuid, err := s.UUID(ctx)
	if err != nil || uuid == "" {
		return false
	}
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// UUID returns the persisted session id
func (s *Secrets) UUID(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, s.keys.UUID)
	if err != nil {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}
	return v, nil
}

// SetUUID persists the session id
func (s *Secrets) SetUUID(ctx context.Context, uuid string) error {
	if err := s.store.Set(ctx, s.keys.UUID, uuid); err != nil {
		return fmt.Errorf("failed to store session id: %w", err)
	}
	return nil
}

// Token returns the persisted token
func (s *Secrets) Token(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, s.keys.Token)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return v, nil
}

// SetToken persists the token
func (s *Secrets) SetToken(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, s.keys.Token, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Watch forwards to the backend when it implements Watcher.
func (s *Secrets) Watch(ctx context.Context, onChange func()) error {
	w, ok := s.store.(Watcher)
	if !ok {
		return ErrWatchUnsupported
	}
	return w.Watch(ctx, onChange)
}
