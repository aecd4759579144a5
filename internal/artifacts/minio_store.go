package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// Object key layout inside the bucket:
//
//	recipes/{id}/main.png
//	recipes/{id}/ingredients.png
//	recipes/{id}/steps/beginner/{n}.png
//	recipes/{id}/steps/advanced/{n}.png
//
// The layout is the contract with prior runs: FindArtifacts classifies keys
// under recipes/{id}/ back into an ExistingArtifactSet.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  arbor.ILogger
}

// NewMinioStore creates an ArtifactStore backed by an S3-compatible object
// store. Returns a store with a nil client when no endpoint is configured;
// Configured() reports false and reconciliation is skipped.
func NewMinioStore(config *common.ArtifactsConfig, logger arbor.ILogger) (*MinioStore, error) {
	store := &MinioStore{
		bucket:  config.Bucket,
		baseURL: strings.TrimSuffix(config.PublicBaseURL, "/"),
		logger:  logger,
	}

	if config.Endpoint == "" {
		logger.Warn().Msg("Artifact store endpoint not configured - reconciliation disabled")
		return store, nil
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store client: %w", err)
	}

	store.client = client

	if store.baseURL == "" {
		scheme := "http"
		if config.UseSSL {
			scheme = "https"
		}
		store.baseURL = fmt.Sprintf("%s://%s/%s", scheme, config.Endpoint, config.Bucket)
	}

	logger.Info().
		Str("endpoint", config.Endpoint).
		Str("bucket", config.Bucket).
		Msg("Artifact store initialized")

	return store, nil
}

// Configured reports whether the store can be queried
func (s *MinioStore) Configured() bool {
	return s.client != nil
}

func (s *MinioStore) recipePrefix(recipeID int64) string {
	return fmt.Sprintf("recipes/%d/", recipeID)
}

// PublicURL returns the public link for an object key
func (s *MinioStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

// FindArtifacts lists everything stored under the recipe's prefix and
// classifies it into an ExistingArtifactSet. Computed fresh on every call.
func (s *MinioStore) FindArtifacts(ctx context.Context, recipe *models.Recipe) (*models.ExistingArtifactSet, error) {
	set := &models.ExistingArtifactSet{
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
	}

	if s.client == nil {
		return set, nil
	}

	prefix := s.recipePrefix(recipe.ID)
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list artifacts for recipe %d: %w", recipe.ID, object.Err)
		}

		rel := strings.TrimPrefix(object.Key, prefix)
		url := s.PublicURL(object.Key)

		switch {
		case strings.HasPrefix(rel, "main."):
			set.MainImage = &models.FoundArtifact{URL: url}
		case strings.HasPrefix(rel, "ingredients."):
			set.IngredientsImage = &models.FoundArtifact{URL: url}
		case strings.HasPrefix(rel, "steps/beginner/"):
			if idx, ok := stepIndexFromKey(rel, "steps/beginner/"); ok {
				set.BeginnerStepImages = append(set.BeginnerStepImages, models.FoundArtifact{URL: url, StepIndex: idx})
			}
		case strings.HasPrefix(rel, "steps/advanced/"):
			if idx, ok := stepIndexFromKey(rel, "steps/advanced/"); ok {
				set.AdvancedStepImages = append(set.AdvancedStepImages, models.FoundArtifact{URL: url, StepIndex: idx})
			}
		}
	}

	sortStepArtifacts(set.BeginnerStepImages)
	sortStepArtifacts(set.AdvancedStepImages)

	return set, nil
}

func (s *MinioStore) UploadMainImage(ctx context.Context, recipeID int64, data []byte, mimeType string) (string, error) {
	key := s.recipePrefix(recipeID) + "main" + extensionFor(mimeType)
	return s.upload(ctx, key, data, mimeType)
}

func (s *MinioStore) UploadIngredientsImage(ctx context.Context, recipeID int64, data []byte, mimeType string) (string, error) {
	key := s.recipePrefix(recipeID) + "ingredients" + extensionFor(mimeType)
	return s.upload(ctx, key, data, mimeType)
}

func (s *MinioStore) UploadStepImage(ctx context.Context, recipeID int64, track models.StepTrack, stepIndex int, data []byte, mimeType string) (string, error) {
	key := fmt.Sprintf("%ssteps/%s/%d%s", s.recipePrefix(recipeID), track, stepIndex, extensionFor(mimeType))
	return s.upload(ctx, key, data, mimeType)
}

func (s *MinioStore) upload(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("artifact store is not configured")
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// stepIndexFromKey extracts the step index from keys like
// "steps/beginner/3.png"
func stepIndexFromKey(rel, prefix string) (int, bool) {
	name := strings.TrimPrefix(rel, prefix)
	if dot := strings.IndexByte(name, '.'); dot > 0 {
		name = name[:dot]
	}
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func sortStepArtifacts(artifacts []models.FoundArtifact) {
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].StepIndex < artifacts[j].StepIndex })
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

var _ interfaces.ArtifactStore = (*MinioStore)(nil)
