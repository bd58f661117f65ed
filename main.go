package main

import (
	"log"
	"net/http"
	"time"

	"insightgen/backend/internal/config"
	generators_app "insightgen/backend/internal/features/generators/application"
	generators_infra "insightgen/backend/internal/features/generators/infrastructure"
	generators_http "insightgen/backend/internal/features/generators/presentation/http"
	headlines_app "insightgen/backend/internal/features/headlines/application"
	headlines_infra "insightgen/backend/internal/features/headlines/infrastructure"
	headlines_http "insightgen/backend/internal/features/headlines/presentation/http"
	"insightgen/backend/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize the generator registry
	store, err := generators_infra.NewYAMLDefinitionStore(cfg.GeneratorsDir, logger)
	if err != nil {
		logger.Fatal("failed to open generator store", zap.Error(err))
	}
	resolverService := generators_app.NewResolverService(store, cfg.DefaultModel)
	registryService := generators_app.NewRegistryService(store, resolverService, cfg.DefaultGeneratorID)

	// Initialize the OpenAI-backed pipeline
	chatClient, err := headlines_infra.NewOpenAIChatClient(cfg.OpenAIAPIKey)
	if err != nil {
		logger.Fatal("failed to create OpenAI client", zap.Error(err))
	}
	headlineService := headlines_app.NewHeadlineService(resolverService, registryService, chatClient, logger)
	jobStore := headlines_app.NewJobStore()

	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Generator API routes
	generatorGroup := r.Group("/api/generators")
	{
		handler := generators_http.NewGeneratorHandler(registryService, resolverService)
		generatorGroup.GET("", handler.ListGeneratorsHandler)
		generatorGroup.POST("", handler.CreateGeneratorHandler)
		generatorGroup.GET("/:id", handler.GetGeneratorHandler)
		generatorGroup.POST("/:id/resolve", handler.ResolvePromptHandler)
	}

	// Headline job API routes
	jobGroup := r.Group("/api/headlines/jobs")
	{
		handler := headlines_http.NewJobHandler(headlineService, jobStore, logger)
		jobGroup.POST("", handler.StartJobHandler)
		jobGroup.GET("", handler.ListJobsHandler)
		jobGroup.GET("/:id", handler.JobStatusHandler)
		jobGroup.GET("/:id/result", handler.JobResultHandler)
		jobGroup.DELETE("/:id", handler.DeleteJobHandler)
	}

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
