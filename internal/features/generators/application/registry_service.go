package application

import (
	"fmt"

	"insightgen/backend/internal/features/generators/domain"
	"insightgen/backend/internal/features/generators/infrastructure"
)

// RegistryService manages the catalog of generator definitions.
type RegistryService interface {
	// List returns metadata for every available generator.
	List() ([]domain.GeneratorInfo, error)

	// Create validates and persists a new generator definition.
	Create(def *domain.GeneratorDefinition) error

	// DefaultGeneratorID returns the configured default generator if it
	// exists, otherwise the first available one by id.
	DefaultGeneratorID() (string, error)
}

// registryService is the implementation of RegistryService.
type registryService struct {
	store     infrastructure.DefinitionStore
	resolver  ResolverService
	defaultID string
}

// NewRegistryService creates a registry over the given store.
// defaultID names the generator used when a request does not pick one.
func NewRegistryService(store infrastructure.DefinitionStore, resolver ResolverService, defaultID string) RegistryService {
	return &registryService{store: store, resolver: resolver, defaultID: defaultID}
}

func (s *registryService) List() ([]domain.GeneratorInfo, error) {
	return s.store.List()
}

func (s *registryService) Create(def *domain.GeneratorDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := s.store.Put(def); err != nil {
		return err
	}
	// A stale cached copy must not outlive the write.
	s.resolver.Invalidate(def.ID)
	return nil
}

func (s *registryService) DefaultGeneratorID() (string, error) {
	infos, err := s.store.List()
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info.ID == s.defaultID {
			return info.ID, nil
		}
	}
	if len(infos) > 0 {
		return infos[0].ID, nil
	}
	return "", fmt.Errorf("%w: no generators available", domain.ErrNotFound)
}
