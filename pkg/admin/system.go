package admin

import (
	"context"
	"sync"

	"github.com/ozxin/nx-admin/pkg/api"
)

// ConfigLoader fetches the public system settings
type ConfigLoader interface {
	Config(ctx context.Context) (*api.SystemSettings, error)
}

// SystemSettings holds the public system settings. Until loaded they are all off.
type SystemSettings struct {
	system ConfigLoader

	mu       sync.RWMutex
	settings api.SystemSettings
	loading  bool
}

// NewSystemSettings creates a settings holder
func NewSystemSettings(system ConfigLoader) *SystemSettings {
	return &SystemSettings{system: system}
}

// Load fetches the settings. On failure the previous settings are kept.
func (s *SystemSettings) Load(ctx context.Context) (api.SystemSettings, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	settings, err := s.system.Config(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return s.settings, err
	}
	s.settings = *settings
	return s.settings, nil
}

// Settings returns the last loaded settings
func (s *SystemSettings) Settings() api.SystemSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Loading reports whether a load is in flight
func (s *SystemSettings) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
