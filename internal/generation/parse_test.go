package generation

import (
	"reflect"
	"testing"
)

func TestParseStepsJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "plain array",
			input: `["Boil water.", "Add pasta."]`,
			want:  []string{"Boil water.", "Add pasta."},
		},
		{
			name:  "fenced json",
			input: "```json\n[\"Boil water.\", \"Add pasta.\"]\n```",
			want:  []string{"Boil water.", "Add pasta."},
		},
		{
			name:  "fenced without language",
			input: "```\n[\"Preheat oven.\"]\n```",
			want:  []string{"Preheat oven."},
		},
		{name: "empty array", input: `[]`, wantErr: true},
		{name: "not json", input: `Step 1: boil water`, wantErr: true},
		{name: "object instead of array", input: `{"steps": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStepsJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("steps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseValidationJSON(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantValid     bool
		wantCorrected []string
		wantErr       bool
	}{
		{
			name:      "valid ingredients",
			input:     `{"is_valid": true, "issues": [], "corrected_ingredients": []}`,
			wantValid: true,
		},
		{
			name:          "corrections as array",
			input:         `{"is_valid": false, "issues": ["missing salt"], "corrected_ingredients": ["2 eggs", "salt"]}`,
			wantValid:     false,
			wantCorrected: []string{"2 eggs", "salt"},
		},
		{
			name:          "corrections as newline string",
			input:         `{"is_valid": false, "corrected_ingredients": "2 eggs\nsalt"}`,
			wantValid:     false,
			wantCorrected: []string{"2 eggs", "salt"},
		},
		{
			name:          "fenced object",
			input:         "```json\n{\"is_valid\": false, \"corrected_ingredients\": [\"flour\"]}\n```",
			wantValid:     false,
			wantCorrected: []string{"flour"},
		},
		{name: "malformed", input: `not json at all`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isValid, corrected, err := parseValidationJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if isValid != tt.wantValid {
				t.Errorf("is_valid = %v, want %v", isValid, tt.wantValid)
			}
			if len(tt.wantCorrected) > 0 && !reflect.DeepEqual(corrected, tt.wantCorrected) {
				t.Errorf("corrected = %v, want %v", corrected, tt.wantCorrected)
			}
		})
	}
}
