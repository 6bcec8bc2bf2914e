package pipeline

import (
	"context"
	"sync"

	"github.com/sentra-scan/sentra/internal/model"
)

// ConfigSource resolves scan configurations. Exactly one configuration
// is active at a time; scans may pin a specific one by id.
type ConfigSource interface {
	GetActiveConfiguration(ctx context.Context) (*model.ScanConfiguration, error)
	GetConfiguration(ctx context.Context, id string) (*model.ScanConfiguration, error)
}

// StaticSource is an in-memory ConfigSource seeded with the built-in
// presets. The CLI layers file overrides on top before handing it over.
type StaticSource struct {
	mu      sync.RWMutex
	configs map[string]*model.ScanConfiguration
	active  string
}

// NewStaticSource creates a source holding the built-in presets with
// the balanced preset active.
func NewStaticSource() *StaticSource {
	s := &StaticSource{configs: make(map[string]*model.ScanConfiguration)}
	for _, cfg := range []*model.ScanConfiguration{
		model.DefaultConfiguration(),
		model.StrictConfiguration(),
		model.PermissiveConfiguration(),
	} {
		s.configs[cfg.ID] = cfg
	}
	s.active = "default"
	return s
}

// Put registers or replaces a configuration.
func (s *StaticSource) Put(cfg *model.ScanConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ID] = cfg
}

// SetActive switches the active configuration.
func (s *StaticSource) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return &model.ConfigurationError{ConfigID: id, Reason: "not found"}
	}
	s.active = id
	return nil
}

func (s *StaticSource) GetActiveConfiguration(ctx context.Context) (*model.ScanConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[s.active], nil
}

func (s *StaticSource) GetConfiguration(ctx context.Context, id string) (*model.ScanConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	if !ok {
		return nil, &model.ConfigurationError{ConfigID: id, Reason: "not found"}
	}
	return cfg, nil
}
