package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/artifacts"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/generation"
	"github.com/ternarybob/coquo/internal/handlers"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/orchestrator"
	"github.com/ternarybob/coquo/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager    interfaces.StorageManager
	GenerationService interfaces.GenerationService
	ArtifactStore     interfaces.ArtifactStore
	Orchestrator      *orchestrator.Service

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	RecipeHandler *handlers.RecipeHandler
	StatusHandler *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	generationService, err := generation.NewGenerationService(&cfg.Generation, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize generation service: %w", err)
	}
	app.GenerationService = generationService

	artifactStore, err := artifacts.NewMinioStore(&cfg.Artifacts, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	app.ArtifactStore = artifactStore

	app.Orchestrator = orchestrator.NewService(cfg, storageManager, generationService, artifactStore, logger)
	if err := app.Orchestrator.Start(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to start orchestrator: %w", err)
	}

	app.JobHandler = handlers.NewJobHandler(app.Orchestrator, logger)
	app.RecipeHandler = handlers.NewRecipeHandler(storageManager.RecipeStorage(), logger)
	app.StatusHandler = handlers.NewStatusHandler(app.Orchestrator, storageManager, generationService, artifactStore, logger)

	logger.Info().
		Str("environment", cfg.Environment).
		Bool("generation_configured", generationService.Configured()).
		Bool("artifacts_configured", artifactStore.Configured()).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down background work and releases storage
func (a *App) Close() error {
	if a.Orchestrator != nil {
		a.Orchestrator.Stop()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
