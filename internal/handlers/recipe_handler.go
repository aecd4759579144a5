package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/interfaces"
)

// RecipeHandler serves read access to the recipe catalog
type RecipeHandler struct {
	recipes interfaces.RecipeStorage
	logger  arbor.ILogger
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(recipes interfaces.RecipeStorage, logger arbor.ILogger) *RecipeHandler {
	return &RecipeHandler{
		recipes: recipes,
		logger:  logger,
	}
}

// ListRecipesHandler returns catalog recipes in ascending ID order
// GET /api/recipes?region=Italian&incomplete=true&limit=100
func (h *RecipeHandler) ListRecipesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.RecipeListOptions{
		Region:         r.URL.Query().Get("region"),
		IncompleteOnly: r.URL.Query().Get("incomplete") == "true",
		Limit:          100,
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			opts.Limit = parsed
		}
	}

	recipes, err := h.recipes.ListRecipes(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list recipes")
		WriteError(w, http.StatusInternalServerError, "Failed to list recipes")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

// GetRecipeHandler returns one recipe by ID
// GET /api/recipes/{id}
func (h *RecipeHandler) GetRecipeHandler(w http.ResponseWriter, r *http.Request, idStr string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid recipe ID")
		return
	}

	recipe, err := h.recipes.GetRecipe(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Recipe not found")
		return
	}

	WriteJSON(w, http.StatusOK, recipe)
}
