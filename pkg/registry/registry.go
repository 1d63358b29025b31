// Package registry provides the configuration registry boundary: it resolves
// a (service_type, service_name, version) triple to a validated ServiceConfig.
// The core never parses the upstream persistence format itself; resolvers only
// hand out already-structured configuration.
package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/errors"
	"github.com/ajitpratap0/polybase/pkg/logger"
)

// Resolver resolves a logical service identity to its configuration.
type Resolver interface {
	Resolve(serviceType, serviceName, version string) (*config.ServiceConfig, error)
}

// Static is an in-memory resolver backed by a fixed set of configurations.
// It is the resolver of choice for embedders and tests.
type Static struct {
	configs map[string]*config.ServiceConfig
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewStatic creates an empty in-memory resolver.
func NewStatic() *Static {
	return &Static{
		configs: make(map[string]*config.ServiceConfig),
		logger:  logger.Get().With(zap.String("component", "registry")),
	}
}

// Register adds a configuration, validating it first. Registering the same
// identity key twice is a configuration error.
func (s *Static) Register(cfg *config.ServiceConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid configuration for %s", cfg.ServiceName))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := cfg.Key()
	if _, exists := s.configs[key]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("service %s already registered", key))
	}

	s.configs[key] = cfg
	s.logger.Info("service registered",
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.Version),
		zap.String("driver", cfg.Driver))
	return nil
}

// Resolve implements Resolver.
func (s *Static) Resolve(serviceType, serviceName, version string) (*config.ServiceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := serviceType + ":" + serviceName + ":" + version
	cfg, exists := s.configs[key]
	if !exists {
		return nil, errors.New(errors.ErrorTypeConfigNotFound,
			fmt.Sprintf("no configuration for %s %s version %s", serviceType, serviceName, version))
	}
	return cfg, nil
}

// List returns the identity keys of all registered services.
func (s *Static) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.configs))
	for key := range s.configs {
		keys = append(keys, key)
	}
	return keys
}

// Catalog is the on-disk shape of a service catalog file.
type Catalog struct {
	Services []*config.ServiceConfig `yaml:"services"`
}

// LoadFile builds a Static resolver from a YAML service catalog.
// Environment variables in the file are substituted before parsing, so
// credentials can stay out of the catalog itself.
func LoadFile(path string) (*Static, error) {
	var catalog Catalog
	if err := config.Load(path, &catalog); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to load service catalog %s", path))
	}

	resolver := NewStatic()
	for _, cfg := range catalog.Services {
		if cfg.ServiceType == "" {
			cfg.ServiceType = config.ServiceTypeDatabase
		}
		if err := resolver.Register(cfg); err != nil {
			return nil, err
		}
	}
	return resolver, nil
}
