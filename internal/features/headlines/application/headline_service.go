package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	generators "insightgen/backend/internal/features/generators/application"
	generatorsdomain "insightgen/backend/internal/features/generators/domain"
	"insightgen/backend/internal/features/headlines/domain"
	"insightgen/backend/internal/features/headlines/infrastructure"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Slide status values surfaced to the caller.
const (
	statusSkippedNonContent = "skipped (non-content slide)"
	statusSkippedNoImage    = "skipped (no image)"
	statusObservationFailed = "observation failed"
	statusHeadlineFailed    = "headline failed"
	statusCompleted         = "completed"
)

// HeadlineService runs the two-stage deck pipeline: per-slide
// observation generation followed by headline generation that carries a
// context window of prior observations.
type HeadlineService interface {
	ProcessDeck(ctx context.Context, req *domain.DeckRequest) ([]domain.Slide, *domain.RunMetrics, error)
}

// headlineService is the implementation of HeadlineService.
type headlineService struct {
	resolver generators.ResolverService
	registry generators.RegistryService
	chat     infrastructure.ChatClient
	logger   *zap.Logger
}

// NewHeadlineService creates a new headlineService.
func NewHeadlineService(resolver generators.ResolverService, registry generators.RegistryService, chat infrastructure.ChatClient, logger *zap.Logger) HeadlineService {
	return &headlineService{resolver: resolver, registry: registry, chat: chat, logger: logger}
}

// ProcessDeck resolves the generator configuration once, then drives
// both stages over the deck. Per-slide failures are counted in the
// metrics without aborting the run; only context cancellation stops it.
func (s *headlineService) ProcessDeck(ctx context.Context, req *domain.DeckRequest) ([]domain.Slide, *domain.RunMetrics, error) {
	generatorID := req.GeneratorID
	if generatorID == "" {
		id, err := s.registry.DefaultGeneratorID()
		if err != nil {
			return nil, nil, err
		}
		generatorID = id
	}

	def, err := s.resolver.Load(generatorID)
	if err != nil {
		return nil, nil, err
	}

	workflow, err := s.resolver.ResolveWorkflow(def)
	if err != nil {
		return nil, nil, err
	}
	if req.ContextWindowSize > 0 {
		workflow.ContextWindowSize = req.ContextWindowSize
	}

	substitutions := make(map[string]string)
	if req.FewShotExamples != "" {
		substitutions["few_shot_examples"] = req.FewShotExamples
	}
	if req.AdditionalInstructions != "" {
		substitutions["additional_system_instructions"] = req.AdditionalInstructions
	}

	observationsPrompt, err := s.resolver.Resolve(def, generatorsdomain.StageObservations, substitutions)
	if err != nil {
		return nil, nil, err
	}
	headlinesPrompt, err := s.resolver.Resolve(def, generatorsdomain.StageHeadlines, substitutions)
	if err != nil {
		return nil, nil, err
	}

	slides := append([]domain.Slide(nil), req.Slides...)
	metrics := &domain.RunMetrics{
		GeneratorID:      def.ID,
		GeneratorName:    def.Name,
		GeneratorVersion: def.Version,
		TaskDescription:  req.TaskDescription,
		TotalSlides:      len(slides),
		StartTime:        time.Now(),
	}
	for i := range slides {
		if slides[i].ContentSlide {
			metrics.ContentSlides++
		}
	}

	s.logger.Info("processing deck",
		zap.String("generator_id", def.ID),
		zap.Int("total_slides", metrics.TotalSlides),
		zap.Int("content_slides", metrics.ContentSlides),
		zap.Int("parallel_slides", workflow.ParallelSlides),
		zap.Int("context_window_size", workflow.ContextWindowSize))

	var mu sync.Mutex
	if err := s.generateObservations(ctx, slides, req.UserPrompt, observationsPrompt, workflow, metrics, &mu); err != nil {
		return nil, nil, err
	}
	if err := s.generateHeadlines(ctx, slides, req.UserPrompt, headlinesPrompt, workflow, metrics, &mu); err != nil {
		return nil, nil, err
	}

	metrics.EndTime = time.Now()
	metrics.TotalSeconds = metrics.EndTime.Sub(metrics.StartTime).Seconds()
	if metrics.ContentSlides > 0 {
		metrics.SecondsPerSlide = metrics.TotalSeconds / float64(metrics.ContentSlides)
	}
	return slides, metrics, nil
}

// generateObservations runs stage one. Each goroutine writes only its
// own slide index; the mutex guards the shared metrics counters.
func (s *headlineService) generateObservations(ctx context.Context, slides []domain.Slide, userPrompt string, prompt *generatorsdomain.ResolvedPrompt, workflow *generatorsdomain.WorkflowConfig, metrics *domain.RunMetrics, mu *sync.Mutex) error {
	limit := workflow.ParallelSlides
	if !workflow.ParallelObservations {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range slides {
		if !slides[i].ContentSlide {
			slides[i].Status = statusSkippedNonContent
			continue
		}
		if slides[i].ImageBase64 == "" {
			slides[i].Status = statusSkippedNoImage
			mu.Lock()
			metrics.Errors++
			mu.Unlock()
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := s.chat.Complete(gctx, infrastructure.ChatRequest{
				Model:        prompt.Model,
				Temperature:  prompt.Temperature,
				MaxTokens:    prompt.MaxTokens,
				SystemPrompt: prompt.SystemPrompt,
				UserPrompt:   userPrompt,
				ImageBase64:  slides[i].ImageBase64,
			})
			if err != nil {
				s.logger.Error("observation generation failed",
					zap.Int("slide", slides[i].Number), zap.Error(err))
				slides[i].Status = statusObservationFailed
				mu.Lock()
				metrics.Errors++
				mu.Unlock()
				return nil
			}
			slides[i].Observations = text
			mu.Lock()
			metrics.ObservationsGenerated++
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// generateHeadlines runs stage two in slide order. Observations from up
// to ContextWindowSize preceding content slides are fed into each
// request so headlines can connect insights across slides.
func (s *headlineService) generateHeadlines(ctx context.Context, slides []domain.Slide, userPrompt string, prompt *generatorsdomain.ResolvedPrompt, workflow *generatorsdomain.WorkflowConfig, metrics *domain.RunMetrics, mu *sync.Mutex) error {
	limit := 1
	if workflow.ParallelHeadlines {
		limit = workflow.ParallelSlides
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range slides {
		if slides[i].Observations == "" {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := s.chat.Complete(gctx, infrastructure.ChatRequest{
				Model:        prompt.Model,
				Temperature:  prompt.Temperature,
				MaxTokens:    prompt.MaxTokens,
				SystemPrompt: prompt.SystemPrompt,
				UserPrompt:   headlineUserPrompt(slides, i, userPrompt, workflow.ContextWindowSize),
			})
			if err != nil {
				s.logger.Error("headline generation failed",
					zap.Int("slide", slides[i].Number), zap.Error(err))
				slides[i].Status = statusHeadlineFailed
				mu.Lock()
				metrics.Errors++
				mu.Unlock()
				return nil
			}
			slides[i].Headline = text
			slides[i].Status = statusCompleted
			mu.Lock()
			metrics.HeadlinesGenerated++
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// headlineUserPrompt assembles the user message for one headline
// request from the run prompt, the context window and the slide's own
// observations.
func headlineUserPrompt(slides []domain.Slide, idx int, userPrompt string, windowSize int) string {
	var window []string
	for j := idx - 1; j >= 0 && len(window) < windowSize; j-- {
		if slides[j].Observations == "" {
			continue
		}
		window = append(window, fmt.Sprintf("Slide %d:\n%s", slides[j].Number, slides[j].Observations))
	}
	// Collected newest-first; restore deck order.
	for a, b := 0, len(window)-1; a < b; a, b = a+1, b-1 {
		window[a], window[b] = window[b], window[a]
	}

	var b strings.Builder
	b.WriteString(userPrompt)
	if len(window) > 0 {
		b.WriteString("\n\nObservations from previous slides:\n\n")
		b.WriteString(strings.Join(window, "\n\n"))
	}
	b.WriteString("\n\nCurrent slide observations:\n")
	b.WriteString(slides[idx].Observations)
	return b.String()
}
