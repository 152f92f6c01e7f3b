// Package app provides application container and dependency injection
package app

import (
	"fmt"
	"time"

	"github.com/mhorvat/xapiport/internal/clients/xapi"
	"github.com/mhorvat/xapiport/internal/common"
	"github.com/mhorvat/xapiport/internal/interfaces"
	export "github.com/mhorvat/xapiport/internal/services/export"
	"github.com/mhorvat/xapiport/internal/storage"
)

// App holds all application dependencies.
type App struct {
	Config *common.Config
	Logger *common.Logger

	// Clients
	Client interfaces.XAPIClient

	// Storage
	Definitions interfaces.DefinitionsStorage

	// Services
	ExportService interfaces.ExportService

	// Metadata
	StartupTime time.Time
}

// NewApp creates and initializes the application container.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	logger.Info().
		Str("environment", config.Environment).
		Str("pbx_url", config.PBX.BaseURL).
		Msg("Initializing application")

	clientOpts := []xapi.ClientOption{
		xapi.WithLogger(logger),
		xapi.WithTimeout(config.ClientTimeout()),
		xapi.WithRateLimit(config.PBX.RateLimit),
	}
	if config.PBX.InsecureTLS {
		clientOpts = append(clientOpts, xapi.WithInsecureTLS())
	}
	client := xapi.NewClient(config.PBX.BaseURL, config.PBX.ClientID, config.PBX.ClientSecret, clientOpts...)

	definitions, err := storage.NewDefinitionsStore(logger, config.Storage.DefinitionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize definitions storage: %w", err)
	}

	exportService := export.NewService(config, logger, client, definitions)

	app := &App{
		Config:        config,
		Logger:        logger,
		Client:        client,
		Definitions:   definitions,
		ExportService: exportService,
		StartupTime:   time.Now(),
	}

	logger.Info().Msg("Application initialized")
	return app, nil
}
