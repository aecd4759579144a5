package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
	"google.golang.org/genai"
)

// GeminiService generates recipe images and text using Gemini models.
// Every call carries its own timeout so a stuck backend call cannot hold
// a job past its stop check.
type GeminiService struct {
	config  *common.GenerationConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiService creates a Gemini-backed generation service. Returns a
// service with a nil client when no API key is configured; Configured()
// reports false and jobs fail fast instead of mid-run.
func NewGeminiService(config *common.GenerationConfig, logger arbor.ILogger) (*GeminiService, error) {
	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid generation timeout '%s': %w", config.Timeout, err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		timeout: timeout,
	}

	if config.GoogleAPIKey == "" {
		logger.Warn().Msg("Google API key not configured - generation disabled")
		return service, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service.client = client

	logger.Info().
		Str("image_model", config.ImageModel).
		Str("text_model", config.TextModel).
		Dur("timeout", timeout).
		Msg("Gemini generation service initialized")

	return service, nil
}

// Configured reports whether the service can make API calls
func (s *GeminiService) Configured() bool {
	return s.client != nil
}

func (s *GeminiService) GenerateMainImage(ctx context.Context, recipe *models.Recipe) (*interfaces.GeneratedImage, error) {
	return s.generateImage(ctx, BuildMainImagePrompt(recipe))
}

func (s *GeminiService) GenerateIngredientsImage(ctx context.Context, recipe *models.Recipe) (*interfaces.GeneratedImage, error) {
	return s.generateImage(ctx, BuildIngredientsImagePrompt(recipe))
}

func (s *GeminiService) GenerateStepImage(ctx context.Context, recipe *models.Recipe, track models.StepTrack, stepIndex int, stepText string) (*interfaces.GeneratedImage, error) {
	return s.generateImage(ctx, BuildStepImagePrompt(recipe, stepText))
}

// generateImage sends one image prompt and extracts the first inline image
// part from the response
func (s *GeminiService) generateImage(ctx context.Context, prompt string) (*interfaces.GeneratedImage, error) {
	if s.client == nil {
		return nil, fmt.Errorf("generation service is not configured")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.ImageModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	image := extractInlineImage(resp)
	if image == nil {
		return nil, fmt.Errorf("no image returned from model %s", s.config.ImageModel)
	}

	s.logger.Debug().
		Str("model", s.config.ImageModel).
		Int("bytes", len(image.Data)).
		Dur("duration", time.Since(startTime)).
		Msg("Image generation completed")

	image.Prompt = prompt
	return image, nil
}

// extractInlineImage walks candidates for the first inline image part
func extractInlineImage(resp *genai.GenerateContentResponse) *interfaces.GeneratedImage {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &interfaces.GeneratedImage{
					Data:     part.InlineData.Data,
					MimeType: mimeType,
				}
			}
		}
	}
	return nil
}

func (s *GeminiService) GenerateSteps(ctx context.Context, recipe *models.Recipe, track models.StepTrack, existing []string, desired int) ([]string, error) {
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

func (s *GeminiService) ValidateIngredients(ctx context.Context, recipe *models.Recipe) (*interfaces.IngredientValidation, error) {
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

// generateText sends one text prompt and concatenates the text parts of the
// first candidate that has any
func (s *GeminiService) generateText(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("generation service is not configured")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.TextModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from text model")
	}

	s.logger.Debug().
		Str("model", s.config.TextModel).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Text generation completed")

	return response.String(), nil
}

var _ interfaces.GenerationService = (*GeminiService)(nil)
