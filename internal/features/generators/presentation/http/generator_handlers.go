package http

import (
	"errors"
	"net/http"

	"insightgen/backend/internal/features/generators/application"
	"insightgen/backend/internal/features/generators/domain"

	"github.com/gin-gonic/gin"
)

// GeneratorHandler holds the generator registry and resolver services.
type GeneratorHandler struct {
	registry application.RegistryService
	resolver application.ResolverService
}

// NewGeneratorHandler creates a new GeneratorHandler.
func NewGeneratorHandler(registry application.RegistryService, resolver application.ResolverService) *GeneratorHandler {
	return &GeneratorHandler{registry: registry, resolver: resolver}
}

// ListGeneratorsHandler handles listing the available generators.
func (h *GeneratorHandler) ListGeneratorsHandler(c *gin.Context) {
	infos, err := h.registry.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list generators: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"generators": infos})
}

// GetGeneratorHandler handles fetching a single generator definition.
func (h *GeneratorHandler) GetGeneratorHandler(c *gin.Context) {
	def, err := h.resolver.Load(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrValidation):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, def)
}

// CreateGeneratorHandler handles registering a new generator definition.
func (h *GeneratorHandler) CreateGeneratorHandler(c *gin.Context) {
	var def domain.GeneratorDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.Create(&def); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store generator: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": def.ID, "message": "Generator stored successfully"})
}

// ResolvePromptRequest is the payload for previewing a resolved stage prompt.
type ResolvePromptRequest struct {
	Stage         domain.Stage      `json:"stage" binding:"required"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
}

// ResolvePromptHandler interpolates a stage prompt for a generator and
// returns the fully resolved request configuration.
func (h *GeneratorHandler) ResolvePromptHandler(c *gin.Context) {
	var req ResolvePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def, err := h.resolver.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resolved, err := h.resolver.Resolve(def, req.Stage, req.Substitutions)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrTemplate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resolved)
}
