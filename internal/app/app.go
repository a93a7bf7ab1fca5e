package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/services/assembler"
	"github.com/referolabs/refero/internal/services/auth"
	"github.com/referolabs/refero/internal/services/fetcher"
	"github.com/referolabs/refero/internal/services/llm"
	"github.com/referolabs/refero/internal/services/reports"
	"github.com/referolabs/refero/internal/services/reprocess"
	"github.com/referolabs/refero/internal/services/scheduler"
	"github.com/referolabs/refero/internal/services/summarizer"
	"github.com/referolabs/refero/internal/storage/badger"
)

// App holds all application dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	Auth        *auth.Service
	Assembler   *assembler.Service
	Reports     *reports.Service
	Reprocessor *reprocess.Service
	Scheduler   *scheduler.Service
}

// New creates the application with all services wired up
func New(config *common.Config) (*App, error) {
	logger := common.GetLogger()

	storageManager, err := badger.NewManager(&config.Storage.Badger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	authService, err := auth.NewService(&config.Auth, storageManager.Users(), logger)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	clientFactory := llm.NewFactory(config, logger)
	fetchService := fetcher.NewService(&config.Fetcher, logger)
	summaryService := summarizer.NewService(logger)

	assemblerService := assembler.NewService(clientFactory, fetchService, summaryService, &config.Assembler, logger)
	reportService := reports.NewService(storageManager, assemblerService, logger)
	reprocessService := reprocess.NewService(clientFactory, reportService, assemblerService, storageManager, logger)
	schedulerService := scheduler.NewService(&config.Retention, config.RetentionMaxIdle(), storageManager, logger)

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Auth:        authService,
		Assembler:   assemblerService,
		Reports:     reportService,
		Reprocessor: reprocessService,
		Scheduler:   schedulerService,
	}, nil
}

// Start launches background services
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close releases all resources
func (a *App) Close() error {
	a.Scheduler.Stop()
	return a.Storage.Close()
}
