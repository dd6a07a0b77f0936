package app

import (
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/infrastructure/config"
	"github.com/eslsoft/wordladder/internal/infrastructure/scheduler"
	"github.com/eslsoft/wordladder/internal/infrastructure/server"
	"github.com/eslsoft/wordladder/internal/repository"
)

// Container aggregates the application dependencies produced by Wire.
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	DB        *sqlx.DB
	Server    *server.Server
	Scheduler *scheduler.Scheduler
}

// Storage is the smaller graph used by the maintenance commands.
type Storage struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *sqlx.DB
	Catalog  repository.CatalogRepository
	Progress repository.ProgressRepository
	Sessions repository.SessionRepository
}
