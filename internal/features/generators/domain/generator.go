package domain

import (
	"fmt"
	"strings"
)

// Stage identifies one of the two generation phases of a deck run.
type Stage string

const (
	// StageObservations is the per-slide analysis phase.
	StageObservations Stage = "observations"
	// StageHeadlines is the insight summarization phase.
	StageHeadlines Stage = "headlines"
)

// Stages lists the phases every generator must define, in pipeline order.
var Stages = []Stage{StageObservations, StageHeadlines}

// Temperature bounds accepted by the model provider, inclusive.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// GeneratorDefinition is a named, versioned bundle of prompt templates
// and workflow parameters for a specific analysis style. Definitions are
// loaded from YAML documents keyed by ID and treated as immutable values
// once validated.
type GeneratorDefinition struct {
	ID            string                `json:"id" yaml:"id"`
	Name          string                `json:"name" yaml:"name"`
	Description   string                `json:"description" yaml:"description"`
	Version       string                `json:"version" yaml:"version"`
	ExamplePrompt string                `json:"example_prompt,omitempty" yaml:"example_prompt,omitempty"`
	DefaultModel  string                `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	Prompts       map[Stage]StagePrompt `json:"prompts" yaml:"prompts"`
	Workflow      WorkflowSettings      `json:"workflow,omitempty" yaml:"workflow,omitempty"`
}

// StagePrompt holds the prompt template and model parameters for one stage.
// Temperature and MaxTokens are pointers so an omitted field can be told
// apart from an explicit zero.
type StagePrompt struct {
	SystemPrompt    string   `json:"system_prompt" yaml:"system_prompt"`
	Model           string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	FewShotExamples string   `json:"few_shot_examples,omitempty" yaml:"few_shot_examples,omitempty"`
	KnowledgeBase   string   `json:"knowledge_base,omitempty" yaml:"knowledge_base,omitempty"`
}

// WorkflowSettings mirrors the on-disk workflow block. Counts are
// pointers so omitted fields pick up the documented defaults while an
// explicit zero still fails validation.
type WorkflowSettings struct {
	ParallelObservations *bool `json:"parallel_observations,omitempty" yaml:"parallel_observations,omitempty"`
	ParallelHeadlines    *bool `json:"parallel_headlines,omitempty" yaml:"parallel_headlines,omitempty"`
	ParallelSlides       *int  `json:"parallel_slides,omitempty" yaml:"parallel_slides,omitempty"`
	ContextWindowSize    *int  `json:"context_window_size,omitempty" yaml:"context_window_size,omitempty"`
}

// WorkflowConfig is the resolved workflow block with all defaults
// applied; every count is positive.
type WorkflowConfig struct {
	ParallelObservations bool `json:"parallel_observations"`
	ParallelHeadlines    bool `json:"parallel_headlines"`
	ParallelSlides       int  `json:"parallel_slides"`
	ContextWindowSize    int  `json:"context_window_size"`
}

// ResolvedPrompt is the fully interpolated, validated request
// configuration for one stage, ready for the model-invocation client.
type ResolvedPrompt struct {
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// GeneratorInfo is the listing metadata for a generator.
type GeneratorInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Info returns the listing metadata for the definition.
func (def *GeneratorDefinition) Info() GeneratorInfo {
	return GeneratorInfo{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Version:     def.Version,
	}
}

// Validate ensures the definition carries every required field and that
// all model parameters fall inside provider-accepted ranges. All
// failures wrap ErrValidation.
func (def *GeneratorDefinition) Validate() error {
	if strings.TrimSpace(def.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: generator %s: name is required", ErrValidation, def.ID)
	}
	if strings.TrimSpace(def.Description) == "" {
		return fmt.Errorf("%w: generator %s: description is required", ErrValidation, def.ID)
	}
	if strings.TrimSpace(def.Version) == "" {
		return fmt.Errorf("%w: generator %s: version is required", ErrValidation, def.ID)
	}
	for _, stage := range Stages {
		prompt, ok := def.Prompts[stage]
		if !ok {
			return fmt.Errorf("%w: generator %s: missing %s prompt", ErrValidation, def.ID, stage)
		}
		if err := prompt.validate(stage); err != nil {
			return fmt.Errorf("generator %s: %w", def.ID, err)
		}
	}
	if err := def.Workflow.validate(); err != nil {
		return fmt.Errorf("generator %s: %w", def.ID, err)
	}
	return nil
}

func (p StagePrompt) validate(stage Stage) error {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return fmt.Errorf("%w: %s: system_prompt is required", ErrValidation, stage)
	}
	if p.Temperature != nil && (*p.Temperature < MinTemperature || *p.Temperature > MaxTemperature) {
		return fmt.Errorf("%w: %s: temperature %v outside [%v, %v]",
			ErrValidation, stage, *p.Temperature, MinTemperature, MaxTemperature)
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return fmt.Errorf("%w: %s: max_tokens must be positive, got %d", ErrValidation, stage, *p.MaxTokens)
	}
	return nil
}

func (w WorkflowSettings) validate() error {
	if w.ParallelSlides != nil && *w.ParallelSlides <= 0 {
		return fmt.Errorf("%w: workflow: parallel_slides must be positive, got %d", ErrValidation, *w.ParallelSlides)
	}
	if w.ContextWindowSize != nil && *w.ContextWindowSize <= 0 {
		return fmt.Errorf("%w: workflow: context_window_size must be positive, got %d", ErrValidation, *w.ContextWindowSize)
	}
	return nil
}
