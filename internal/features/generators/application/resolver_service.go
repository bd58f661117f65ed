package application

import (
	"fmt"
	"sync"

	"insightgen/backend/internal/features/generators/domain"
	"insightgen/backend/internal/features/generators/infrastructure"
)

// Parameter defaults applied when a stage omits them. These mirror the
// defaults the model-invocation client has always used.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// Workflow defaults applied when the document omits the counts,
// keeping downstream fan-out and context memory bounded.
const (
	DefaultParallelSlides    = 3
	DefaultContextWindowSize = 10
)

// ResolverService loads generator definitions and turns them into
// resolved per-stage request configurations. Resolution is a pure
// computation over an already-loaded definition, so any number of
// callers may share one service without coordination.
type ResolverService interface {
	// Load returns the validated definition for id, consulting a
	// read-through cache in front of the definition store.
	Load(id string) (*domain.GeneratorDefinition, error)

	// Resolve interpolates the stage's system-prompt template with the
	// caller's substitutions and returns the effective request
	// parameters for that stage.
	Resolve(def *domain.GeneratorDefinition, stage domain.Stage, substitutions map[string]string) (*domain.ResolvedPrompt, error)

	// ResolveWorkflow returns the workflow parameters with defaults
	// applied and all counts validated as positive.
	ResolveWorkflow(def *domain.GeneratorDefinition) (*domain.WorkflowConfig, error)

	// Invalidate drops the cached definition for id. Correctness never
	// depends on the cache: the next Load re-reads the store.
	Invalidate(id string)
}

// resolverService is the implementation of ResolverService.
type resolverService struct {
	store        infrastructure.DefinitionStore
	defaultModel string

	mu    sync.RWMutex
	cache map[string]*domain.GeneratorDefinition
}

// NewResolverService creates a resolver over the given definition
// store. defaultModel is the global fallback used when neither the
// stage nor the document names a model.
func NewResolverService(store infrastructure.DefinitionStore, defaultModel string) ResolverService {
	return &resolverService{
		store:        store,
		defaultModel: defaultModel,
		cache:        make(map[string]*domain.GeneratorDefinition),
	}
}

func (s *resolverService) Load(id string) (*domain.GeneratorDefinition, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty generator id", domain.ErrNotFound)
	}

	s.mu.RLock()
	def, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return def, nil
	}

	def, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = def
	s.mu.Unlock()
	return def, nil
}

func (s *resolverService) Resolve(def *domain.GeneratorDefinition, stage domain.Stage, substitutions map[string]string) (*domain.ResolvedPrompt, error) {
	prompt, ok := def.Prompts[stage]
	if !ok {
		return nil, fmt.Errorf("%w: generator %s: unknown stage %q", domain.ErrValidation, def.ID, stage)
	}

	// Caller substitutions win over the document-level blocks; anything
	// still unresolved degrades to the empty string.
	text, err := domain.ExpandTemplate(prompt.SystemPrompt, func(name string) string {
		if value, ok := substitutions[name]; ok {
			return value
		}
		switch name {
		case "few_shot_examples":
			return prompt.FewShotExamples
		case "knowledge_base":
			return prompt.KnowledgeBase
		}
		return ""
	})
	if err != nil {
		return nil, fmt.Errorf("generator %s: %s: %w", def.ID, stage, err)
	}

	resolved := &domain.ResolvedPrompt{
		SystemPrompt: text,
		Model:        s.effectiveModel(def, prompt),
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
	}
	if prompt.Temperature != nil {
		resolved.Temperature = *prompt.Temperature
	}
	if prompt.MaxTokens != nil {
		resolved.MaxTokens = *prompt.MaxTokens
	}
	return resolved, nil
}

func (s *resolverService) ResolveWorkflow(def *domain.GeneratorDefinition) (*domain.WorkflowConfig, error) {
	w := def.Workflow
	if w.ParallelSlides != nil && *w.ParallelSlides <= 0 {
		return nil, fmt.Errorf("%w: generator %s: parallel_slides must be positive, got %d",
			domain.ErrValidation, def.ID, *w.ParallelSlides)
	}
	if w.ContextWindowSize != nil && *w.ContextWindowSize <= 0 {
		return nil, fmt.Errorf("%w: generator %s: context_window_size must be positive, got %d",
			domain.ErrValidation, def.ID, *w.ContextWindowSize)
	}

	resolved := &domain.WorkflowConfig{
		ParallelObservations: true,
		ParallelHeadlines:    false,
		ParallelSlides:       DefaultParallelSlides,
		ContextWindowSize:    DefaultContextWindowSize,
	}
	if w.ParallelObservations != nil {
		resolved.ParallelObservations = *w.ParallelObservations
	}
	if w.ParallelHeadlines != nil {
		resolved.ParallelHeadlines = *w.ParallelHeadlines
	}
	if w.ParallelSlides != nil {
		resolved.ParallelSlides = *w.ParallelSlides
	}
	if w.ContextWindowSize != nil {
		resolved.ContextWindowSize = *w.ContextWindowSize
	}
	return resolved, nil
}

func (s *resolverService) Invalidate(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

func (s *resolverService) effectiveModel(def *domain.GeneratorDefinition, prompt domain.StagePrompt) string {
	if prompt.Model != "" {
		return prompt.Model
	}
	if def.DefaultModel != "" {
		return def.DefaultModel
	}
	return s.defaultModel
}
