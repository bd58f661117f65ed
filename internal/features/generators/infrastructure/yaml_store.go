package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"insightgen/backend/internal/features/generators/domain"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// YAMLDefinitionStore serves generator definitions from a directory of
// standalone YAML documents, one generator per file. The directory is
// scanned once at construction to build an id -> path index; Get always
// re-reads the file so the on-disk document stays the source of truth
// and callers may cache results freely.
type YAMLDefinitionStore struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	paths map[string]string
}

// NewYAMLDefinitionStore indexes every *.yaml / *.yml document under
// dir. Documents that fail to parse or validate are logged and skipped
// so one broken file cannot take down the whole registry. A missing
// directory yields an empty store.
func NewYAMLDefinitionStore(dir string, logger *zap.Logger) (*YAMLDefinitionStore, error) {
	store := &YAMLDefinitionStore{
		dir:    dir,
		logger: logger,
		paths:  make(map[string]string),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("generators directory not found", zap.String("dir", dir))
			return store, nil
		}
		return nil, fmt.Errorf("read generators directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		def, err := loadDefinitionFile(path)
		if err != nil {
			logger.Error("skipping invalid generator document",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if existing, ok := store.paths[def.ID]; ok {
			logger.Error("skipping duplicate generator id",
				zap.String("id", def.ID),
				zap.String("path", path),
				zap.String("existing", existing))
			continue
		}
		store.paths[def.ID] = path
		logger.Info("loaded generator",
			zap.String("id", def.ID), zap.String("path", path))
	}
	return store, nil
}

// Get re-reads and validates the document registered under id.
func (s *YAMLDefinitionStore) Get(id string) (*domain.GeneratorDefinition, error) {
	s.mu.RLock()
	path, ok := s.paths[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	def, err := loadDefinitionFile(path)
	if err != nil {
		return nil, err
	}
	if def.ID != id {
		return nil, fmt.Errorf("%w: document at %s now carries id %s, expected %s",
			domain.ErrValidation, path, def.ID, id)
	}
	return def, nil
}

// List returns metadata for every registered definition, sorted by id.
func (s *YAMLDefinitionStore) List() ([]domain.GeneratorInfo, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.paths))
	for id := range s.paths {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	infos := make([]domain.GeneratorInfo, 0, len(ids))
	for _, id := range ids {
		def, err := s.Get(id)
		if err != nil {
			// The file may have been edited under us; skip it rather
			// than failing the whole listing.
			s.logger.Error("skipping unreadable generator", zap.String("id", id), zap.Error(err))
			continue
		}
		infos = append(infos, def.Info())
	}
	return infos, nil
}

// Put validates def and writes it as <id>.yaml under the store
// directory, registering it in the index.
func (s *YAMLDefinitionStore) Put(def *domain.GeneratorDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode generator %s: %w", def.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.paths[def.ID]
	if !ok {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create generators directory %s: %w", s.dir, err)
		}
		path = filepath.Join(s.dir, def.ID+".yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write generator %s to %s: %w", def.ID, path, err)
	}
	s.paths[def.ID] = path
	s.logger.Info("stored generator", zap.String("id", def.ID), zap.String("path", path))
	return nil
}

func loadDefinitionFile(path string) (*domain.GeneratorDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
