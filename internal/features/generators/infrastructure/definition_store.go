package infrastructure

import (
	"bytes"
	"fmt"

	"insightgen/backend/internal/features/generators/domain"

	"gopkg.in/yaml.v3"
)

// DefinitionStore is the configuration source for generator
// definitions, keyed by identifier.
type DefinitionStore interface {
	// Get returns the parsed, validated definition for id, or a
	// domain.ErrNotFound / domain.ErrValidation wrapped error.
	Get(id string) (*domain.GeneratorDefinition, error)

	// List returns metadata for every valid definition in the store.
	List() ([]domain.GeneratorInfo, error)

	// Put persists a validated definition, overwriting any existing
	// document with the same id.
	Put(def *domain.GeneratorDefinition) error
}

// ParseDefinition decodes and validates a single generator document.
func ParseDefinition(data []byte) (*domain.GeneratorDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: definition payload is empty", domain.ErrValidation)
	}
	var def domain.GeneratorDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: decode definition: %v", domain.ErrValidation, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
