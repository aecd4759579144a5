package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFences removes markdown code fences models sometimes wrap
// around JSON output
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// parseStepsJSON parses a JSON array of step strings from model output
func parseStepsJSON(text string) ([]string, error) {
	cleaned := stripCodeFences(text)

	var steps []string
	if err := json.Unmarshal([]byte(cleaned), &steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps response as JSON array: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("steps response contained no steps")
	}
	return steps, nil
}

// validationResponse is the wire shape of the ingredient validation output.
// corrected_ingredients is accepted as either an array or a newline/comma
// separated string.
type validationResponse struct {
	IsValid              bool            `json:"is_valid"`
	Issues               []string        `json:"issues"`
	CorrectedIngredients json.RawMessage `json:"corrected_ingredients"`
}

// parseValidationJSON parses the ingredient validation object
func parseValidationJSON(text string) (bool, []string, error) {
	cleaned := stripCodeFences(text)

	var resp validationResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return false, nil, fmt.Errorf("failed to parse validation response: %w", err)
	}

	var corrected []string
	if len(resp.CorrectedIngredients) > 0 {
		if err := json.Unmarshal(resp.CorrectedIngredients, &corrected); err != nil {
			var asString string
			if err := json.Unmarshal(resp.CorrectedIngredients, &asString); err == nil {
				corrected = splitIngredientString(asString)
			}
		}
	}

	return resp.IsValid, corrected, nil
}

func splitIngredientString(s string) []string {
	sep := "\n"
	if !strings.Contains(s, "\n") {
		sep = ","
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "-")); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
