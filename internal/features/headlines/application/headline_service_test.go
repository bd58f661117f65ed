package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	generators "insightgen/backend/internal/features/generators/application"
	generatorsdomain "insightgen/backend/internal/features/generators/domain"
	"insightgen/backend/internal/features/headlines/domain"
	"insightgen/backend/internal/features/headlines/infrastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// memStore is an in-memory DefinitionStore for pipeline tests.
type memStore struct {
	defs map[string]*generatorsdomain.GeneratorDefinition
}

func (s *memStore) Get(id string) (*generatorsdomain.GeneratorDefinition, error) {
	def, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generatorsdomain.ErrNotFound, id)
	}
	return def, nil
}

func (s *memStore) List() ([]generatorsdomain.GeneratorInfo, error) {
	infos := make([]generatorsdomain.GeneratorInfo, 0, len(s.defs))
	for _, def := range s.defs {
		infos = append(infos, def.Info())
	}
	return infos, nil
}

func (s *memStore) Put(def *generatorsdomain.GeneratorDefinition) error {
	s.defs[def.ID] = def
	return nil
}

// fakeChat answers observation requests with a marker derived from the
// slide image and headline requests with a fixed marker. It tracks the
// peak number of in-flight calls to make the fan-out bound observable.
type fakeChat struct {
	mu        sync.Mutex
	active    int
	maxActive int
	requests  []infrastructure.ChatRequest
	failOn    string
}

func (f *fakeChat) Complete(ctx context.Context, req infrastructure.ChatRequest) (string, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.failOn != "" && req.ImageBase64 == f.failOn {
		return "", fmt.Errorf("simulated provider failure")
	}
	if req.ImageBase64 != "" {
		return "observations for " + req.ImageBase64, nil
	}
	return "generated headline", nil
}

func (f *fakeChat) headlineRequests() []infrastructure.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []infrastructure.ChatRequest
	for _, req := range f.requests {
		if req.ImageBase64 == "" {
			out = append(out, req)
		}
	}
	return out
}

func pipelineDefinition(parallelSlides, contextWindow int) *generatorsdomain.GeneratorDefinition {
	return &generatorsdomain.GeneratorDefinition{
		ID:           "BGS_Default",
		Name:         "Brand Growth Study Default",
		Description:  "Default generator.",
		Version:      "1.0.0",
		DefaultModel: "gpt-4o",
		Prompts: map[generatorsdomain.Stage]generatorsdomain.StagePrompt{
			generatorsdomain.StageObservations: {SystemPrompt: "Analyze the slide."},
			generatorsdomain.StageHeadlines:    {SystemPrompt: "Write a headline. {few_shot_examples}"},
		},
		Workflow: generatorsdomain.WorkflowSettings{
			ParallelObservations: boolPtr(true),
			ParallelSlides:       intPtr(parallelSlides),
			ContextWindowSize:    intPtr(contextWindow),
		},
	}
}

func newPipeline(def *generatorsdomain.GeneratorDefinition, chat infrastructure.ChatClient) HeadlineService {
	store := &memStore{defs: map[string]*generatorsdomain.GeneratorDefinition{def.ID: def}}
	resolver := generators.NewResolverService(store, "gpt-4o")
	registry := generators.NewRegistryService(store, resolver, "BGS_Default")
	return NewHeadlineService(resolver, registry, chat, zap.NewNop())
}

func contentSlides(n int) []domain.Slide {
	slides := make([]domain.Slide, n)
	for i := range slides {
		slides[i] = domain.Slide{
			Number:       i + 1,
			ContentSlide: true,
			ImageBase64:  fmt.Sprintf("img-%d", i+1),
		}
	}
	return slides
}

func TestProcessDeck(t *testing.T) {
	t.Run("generates observations and headlines for content slides", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		slides := contentSlides(3)
		slides = append(slides, domain.Slide{Number: 4, Layout: "HEADER_divider", ContentSlide: false})

		out, metrics, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     slides,
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)
		require.Len(t, out, 4)

		for i := 0; i < 3; i++ {
			assert.Equal(t, fmt.Sprintf("observations for img-%d", i+1), out[i].Observations)
			assert.Equal(t, "generated headline", out[i].Headline)
			assert.Equal(t, statusCompleted, out[i].Status)
		}
		assert.Empty(t, out[3].Observations)
		assert.Equal(t, statusSkippedNonContent, out[3].Status)

		assert.Equal(t, 4, metrics.TotalSlides)
		assert.Equal(t, 3, metrics.ContentSlides)
		assert.Equal(t, 3, metrics.ObservationsGenerated)
		assert.Equal(t, 3, metrics.HeadlinesGenerated)
		assert.Equal(t, 0, metrics.Errors)
		assert.Equal(t, "BGS_Default", metrics.GeneratorID)
	})

	t.Run("headline context carries only the window of prior observations", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(1, 2), chat)

		_, _, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     contentSlides(4),
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)

		headlines := chat.headlineRequests()
		require.Len(t, headlines, 4)

		last := headlines[3].UserPrompt
		assert.Contains(t, last, "observations for img-2")
		assert.Contains(t, last, "observations for img-3")
		assert.NotContains(t, last, "Slide 1:", "window of 2 excludes the first slide")
		assert.Contains(t, last, "Current slide observations:\nobservations for img-4")

		first := headlines[0].UserPrompt
		assert.NotContains(t, first, "Observations from previous slides")
	})

	t.Run("request overrides shrink the context window", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(1, 10), chat)

		_, _, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:            contentSlides(3),
			UserPrompt:        "Market: Vietnam",
			ContextWindowSize: 1,
		})
		require.NoError(t, err)

		headlines := chat.headlineRequests()
		require.Len(t, headlines, 3)
		assert.NotContains(t, headlines[2].UserPrompt, "Slide 1:")
		assert.Contains(t, headlines[2].UserPrompt, "Slide 2:")
	})

	t.Run("few-shot examples reach the headline system prompt", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		_, _, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:          contentSlides(1),
			UserPrompt:      "Market: Vietnam",
			FewShotExamples: "Example: X grows.",
		})
		require.NoError(t, err)

		headlines := chat.headlineRequests()
		require.Len(t, headlines, 1)
		assert.Equal(t, "Write a headline. Example: X grows.", headlines[0].SystemPrompt)
	})

	t.Run("observation fan-out respects the parallel slides bound", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		_, _, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     contentSlides(8),
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, chat.maxActive, 2)
	})

	t.Run("per-slide failures are counted without aborting the run", func(t *testing.T) {
		chat := &fakeChat{failOn: "img-2"}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		out, metrics, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     contentSlides(3),
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)

		assert.Equal(t, statusObservationFailed, out[1].Status)
		assert.Empty(t, out[1].Headline)
		assert.Equal(t, statusCompleted, out[0].Status)
		assert.Equal(t, statusCompleted, out[2].Status)
		assert.Equal(t, 1, metrics.Errors)
		assert.Equal(t, 2, metrics.HeadlinesGenerated)
	})

	t.Run("slides without an image are skipped and counted as errors", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		slides := contentSlides(2)
		slides[1].ImageBase64 = ""
		out, metrics, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     slides,
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)
		assert.Equal(t, statusSkippedNoImage, out[1].Status)
		assert.Equal(t, 1, metrics.Errors)
	})

	t.Run("unknown generator fails the run", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		_, _, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:      contentSlides(1),
			UserPrompt:  "Market: Vietnam",
			GeneratorID: "missing",
		})
		assert.ErrorIs(t, err, generatorsdomain.ErrNotFound)
	})

	t.Run("default generator is used when none is named", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		_, metrics, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     contentSlides(1),
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)
		assert.Equal(t, "BGS_Default", metrics.GeneratorID)
	})

	t.Run("original slices are not mutated", func(t *testing.T) {
		chat := &fakeChat{}
		service := newPipeline(pipelineDefinition(2, 10), chat)

		slides := contentSlides(1)
		_, _, err := service.ProcessDeck(context.Background(), &domain.DeckRequest{
			Slides:     slides,
			UserPrompt: "Market: Vietnam",
		})
		require.NoError(t, err)
		assert.Empty(t, slides[0].Headline)
		assert.True(t, strings.HasPrefix(slides[0].ImageBase64, "img-"))
	})
}
