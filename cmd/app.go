package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	config "task-tracker.com/task-tracker/internal/configs"
	"task-tracker.com/task-tracker/internal/logger"
	repository "task-tracker.com/task-tracker/internal/repositories"
	"task-tracker.com/task-tracker/internal/services"
)

type app struct {
	cfg     config.Config
	log     zerolog.Logger
	db      *gorm.DB
	service *services.TaskService
}

// bootstrap loads .env and the TASKS_* environment, then opens the database.
func bootstrap() (*app, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, nil)
	if envErr != nil {
		if errors.Is(envErr, fs.ErrNotExist) {
			log.Debug().Msg(".env file not found, using environment variables")
		} else {
			log.Warn().Err(envErr).Msg("failed to read .env file")
		}
	}

	db, err := config.NewDatabaseClient(cfg, log)
	if err != nil {
		return nil, err
	}

	repo := repository.NewTaskRepository(db, log)
	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		service: services.NewTaskService(repo, log),
	}, nil
}

func (a *app) Close() {
	if err := config.CloseDatabase(a.db); err != nil {
		a.log.Error().Err(err).Msg("failed to close database")
	}
}
