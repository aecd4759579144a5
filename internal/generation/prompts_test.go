package generation

import (
	"strings"
	"testing"

	"github.com/ternarybob/coquo/internal/models"
)

func testRecipe() *models.Recipe {
	return &models.Recipe{
		ID:          1,
		Name:        "Pad Thai",
		Description: "Stir-fried rice noodles",
		Region:      "Thai",
		Ingredients: []string{"rice noodles", "tamarind paste"},
		Steps:       []string{"Soak noodles", "Stir fry"},
	}
}

func TestBuildStepsPromptTracks(t *testing.T) {
	recipe := testRecipe()

	beginner := BuildStepsPrompt(recipe, models.TrackBeginner, nil, models.DesiredBeginnerSteps)
	if !strings.Contains(beginner, "BEGINNERS") {
		t.Error("beginner prompt must target beginners")
	}
	if !strings.Contains(beginner, "Generate 10 total steps") {
		t.Error("beginner prompt must request 10 steps")
	}

	advanced := BuildStepsPrompt(recipe, models.TrackAdvanced, nil, models.DesiredAdvancedSteps)
	if !strings.Contains(advanced, "EXPERIENCED COOKS") {
		t.Error("advanced prompt must target experienced cooks")
	}
	if !strings.Contains(advanced, "Generate 8 total steps") {
		t.Error("advanced prompt must request 8 steps")
	}
}

func TestBuildStepsPromptPartialResume(t *testing.T) {
	recipe := testRecipe()
	existing := []string{"Soak the noodles in warm water.", "Prepare the sauce."}

	prompt := BuildStepsPrompt(recipe, models.TrackBeginner, existing, models.DesiredBeginnerSteps)
	if !strings.Contains(prompt, "continue from step 3") {
		t.Error("prompt with existing steps must ask to continue from the next step")
	}
	if !strings.Contains(prompt, existing[0]) {
		t.Error("prompt must carry the already-written steps")
	}
}

func TestImagePromptsForbidText(t *testing.T) {
	recipe := testRecipe()

	prompts := map[string]string{
		"main":        BuildMainImagePrompt(recipe),
		"ingredients": BuildIngredientsImagePrompt(recipe),
		"step":        BuildStepImagePrompt(recipe, "Stir fry the noodles."),
	}

	for name, prompt := range prompts {
		if !strings.Contains(prompt, "NO TEXT RULE") {
			t.Errorf("%s image prompt must enforce the no-text rule", name)
		}
		if !strings.Contains(prompt, recipe.Name) {
			t.Errorf("%s image prompt must name the recipe", name)
		}
	}
}

func TestBuildIngredientValidationPrompt(t *testing.T) {
	prompt := BuildIngredientValidationPrompt(testRecipe())
	for _, field := range []string{"is_valid", "issues", "corrected_ingredients"} {
		if !strings.Contains(prompt, field) {
			t.Errorf("validation prompt must describe the %s field", field)
		}
	}
}
