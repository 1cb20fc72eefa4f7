// Package generator собирает фоновый сервис генерации занятий
// из повторяющихся шаблонов.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/config"
	generatorservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/generator"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// App представляет приложение генератора занятий.
type App struct {
	generatorService *generatorservice.Service
	interval         time.Duration
	db               *repository.Storage
	logger           *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения генератора.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		_ = db.DB.Close()
		return nil, err
	}

	generatorService := generatorservice.New(db, cfg.Scheduling.HorizonDays, logger)

	return &App{
		generatorService: generatorService,
		interval:         cfg.Scheduling.GenerateInterval,
		db:               db,
		logger:           logger,
	}, nil
}

// Run запускает периодическую генерацию до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	a.generatorService.Run(ctx, a.interval)

	a.logger.Info("shutting down session generator")
	return a.db.DB.Close()
}
