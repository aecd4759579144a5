package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

const claudeMaxTokens = 8192

// ClaudeService generates recipe text using Anthropic Claude models. Image
// operations always go through Gemini; Claude only serves the text side of
// the provider split.
type ClaudeService struct {
	config  *common.GenerationConfig
	logger  arbor.ILogger
	client  *anthropic.Client
	timeout time.Duration
}

// NewClaudeService creates a Claude-backed text generator
func NewClaudeService(config *common.GenerationConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the claude text provider (set COQUO_ANTHROPIC_API_KEY or generation.anthropic_api_key in config)")
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid generation timeout '%s': %w", config.Timeout, err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.AnthropicAPIKey),
	)

	service := &ClaudeService{
		config:  config,
		logger:  logger,
		client:  &client,
		timeout: timeout,
	}

	logger.Info().
		Str("text_model", config.TextModel).
		Dur("timeout", timeout).
		Msg("Claude text generation service initialized")

	return service, nil
}

func (s *ClaudeService) GenerateSteps(ctx context.Context, recipe *models.Recipe, track models.StepTrack, existing []string, desired int) ([]string, error) {
	prompt := BuildStepsPrompt(recipe, track, existing, desired)

	response, err := s.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	steps, err := parseStepsJSON(response)
	if err != nil {
		return nil, fmt.Errorf("steps generation for %s track returned malformed output: %w", track, err)
	}
	return steps, nil
}

func (s *ClaudeService) ValidateIngredients(ctx context.Context, recipe *models.Recipe) (*interfaces.IngredientValidation, error) {
	prompt := BuildIngredientValidationPrompt(recipe)

	response, err := s.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	isValid, corrected, err := parseValidationJSON(response)
	if err != nil {
		return nil, fmt.Errorf("ingredient validation returned malformed output: %w", err)
	}

	return &interfaces.IngredientValidation{
		IsValid:   isValid,
		Corrected: corrected,
		Prompt:    prompt,
	}, nil
}

func (s *ClaudeService) generateText(ctx context.Context, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.TextModel),
		MaxTokens: int64(claudeMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from text model")
	}

	s.logger.Debug().
		Str("model", s.config.TextModel).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude text generation completed")

	return response.String(), nil
}

var _ interfaces.TextGenerator = (*ClaudeService)(nil)
