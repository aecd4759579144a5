package generation

import (
	"fmt"
	"strings"

	"github.com/ternarybob/coquo/internal/models"
)

// Prompt builders for the five content operations. The exact prompt text is
// recorded in job log details so operators can audit what was sent.

// BuildMainImagePrompt returns the prompt for the finished-dish image
func BuildMainImagePrompt(recipe *models.Recipe) string {
	return fmt.Sprintf(`Create a professional, mouthwatering image of this finished dish.

Recipe: %s
Description: %s

CRITICAL REQUIREMENTS (STRICTLY ENFORCE):
1. IMAGE SIZE & ORIENTATION: MUST be HORIZONTAL format, aspect ratio 1024x680 pixels (landscape orientation)
2. NO TEXT RULE: ABSOLUTELY NO text, recipe names, labels, captions, watermarks, or any written elements
3. PROFESSIONAL PRESENTATION: Restaurant-quality plating and composition

The image should:
- Show the completed dish beautifully plated and presented
- Use professional food photography lighting
- Include garnishes and complementary elements
- Use appropriate serving dishes/plates for this cuisine
- Frame composition should be HORIZONTAL (wider than tall)

Output: Horizontal landscape image (1024x680), professional food photography style, vibrant colors, sharp focus, completely text-free.`,
		recipe.Name, recipe.Description)
}

// BuildIngredientsImagePrompt returns the prompt for the ingredients spread
func BuildIngredientsImagePrompt(recipe *models.Recipe) string {
	return fmt.Sprintf(`Create a professional, appetizing image showing ALL the ingredients for this recipe arranged on a clean surface.

Recipe: %s
Ingredients: %s

CRITICAL REQUIREMENTS (STRICTLY ENFORCE):
1. IMAGE SIZE & ORIENTATION: MUST be HORIZONTAL format, aspect ratio 1024x680 pixels (landscape orientation)
2. NO TEXT RULE: ABSOLUTELY NO text, labels, ingredient names, numbers, captions, watermarks, or any written elements
3. ALL INGREDIENTS VISIBLE: Ensure EVERY ingredient listed is visible and clearly arranged in the frame

The image should:
- Use natural lighting to show ingredients clearly
- Have a clean, professional food photography aesthetic
- Use a neutral background (white, marble, or wood)
- Make ingredients look fresh, appetizing, and well-organized

Output: Horizontal landscape image (1024x680), professional food photography style, completely text-free.`,
		recipe.Name, strings.Join(recipe.Ingredients, ", "))
}

// BuildStepImagePrompt returns the prompt for one instructional step image
func BuildStepImagePrompt(recipe *models.Recipe, stepText string) string {
	return fmt.Sprintf(`Create a clear, instructional image showing this cooking step in action.

Recipe: %s
Step: %s

CRITICAL REQUIREMENTS (STRICTLY ENFORCE):
1. IMAGE SIZE & ORIENTATION: MUST be HORIZONTAL format, aspect ratio 1024x680 pixels (landscape orientation)
2. NO TEXT RULE: ABSOLUTELY NO text, step numbers, labels, captions, watermarks, or any written elements
3. INSTRUCTIONAL CLARITY: Show the cooking action clearly and unambiguously

The image should:
- Clearly demonstrate the action described in the step
- Show hands/tools performing the action in a natural way
- Have an instructional, how-to photography style
- Include relevant ingredients/tools in frame

Output: Horizontal landscape image (1024x680), instructional photography style, clear and practical, completely text-free.`,
		recipe.Name, stepText)
}

// BuildStepsPrompt returns the prompt for generating a step text track.
// Existing steps are passed so a partially complete track is extended, not
// regenerated from scratch.
func BuildStepsPrompt(recipe *models.Recipe, track models.StepTrack, existing []string, desired int) string {
	var audience, requirements string
	if track == models.TrackAdvanced {
		audience = "EXPERIENCED COOKS who understand cooking fundamentals"
		requirements = `1. Combine related actions into efficient steps
2. Use professional cooking terminology
3. Focus on technique and precision
4. Assume knowledge of basic prep (mise en place)
5. Include chef's tips and variations
6. Each step should be 1-2 sentences, concise but complete`
	} else {
		audience = "BEGINNERS who are learning to cook"
		requirements = `1. Break down complex actions into simple, clear steps
2. Explain WHY each step is important
3. Include temperature settings, timing, and visual cues
4. Warn about common mistakes
5. Use simple cooking terminology and explain technical terms
6. Each step should be 2-4 sentences with clear details`
	}

	var existingNote string
	if len(existing) > 0 {
		existingNote = fmt.Sprintf("\nAlready written steps (keep them, continue from step %d):\n%s\n",
			len(existing)+1, strings.Join(existing, "\n"))
	}

	return fmt.Sprintf(`You are creating a recipe guide for %s. Generate %d total steps for this recipe.

Recipe Name: %s
Description: %s
Ingredients: %s
Original Steps (for reference): %s
%s
CRITICAL REQUIREMENTS:
%s

Return ONLY a JSON array of step strings, no additional text or explanations.`,
		audience, desired, recipe.Name, recipe.Description,
		strings.Join(recipe.Ingredients, ", "), strings.Join(recipe.Steps, " | "),
		existingNote, requirements)
}

// BuildIngredientValidationPrompt returns the prompt for the ingredients check
func BuildIngredientValidationPrompt(recipe *models.Recipe) string {
	return fmt.Sprintf(`You are a culinary expert validating recipe ingredients for accuracy and completeness.

Recipe Name: %s
Cuisine: %s
Current Ingredients: %s

Validate and improve the ingredient list. Check for:
1. Missing essential ingredients for this dish
2. Incorrect quantities or measurements
3. Uncommon or hard-to-find ingredients (suggest substitutes)
4. Proper ingredient names and spellings

Return a JSON object with this structure:
{
    "is_valid": true,
    "issues": ["list of issues found"],
    "corrected_ingredients": ["corrected ingredient list"]
}

Be thorough but practical. Only mark as invalid if there are serious problems. Return ONLY the JSON object.`,
		recipe.Name, recipe.Region, strings.Join(recipe.Ingredients, ", "))
}
