//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/adapter/httpapi"
	"github.com/eslsoft/wordladder/internal/adapter/repository/sqlstore"
	"github.com/eslsoft/wordladder/internal/infrastructure/config"
	"github.com/eslsoft/wordladder/internal/infrastructure/database"
	"github.com/eslsoft/wordladder/internal/infrastructure/events"
	"github.com/eslsoft/wordladder/internal/infrastructure/scheduler"
	"github.com/eslsoft/wordladder/internal/infrastructure/server"
	"github.com/eslsoft/wordladder/internal/repository"
	"github.com/eslsoft/wordladder/internal/usecase"
)

var configSet = wire.NewSet(
	config.Load,
	NewSettings,
)

var loggerSet = wire.NewSet(
	server.NewLogger,
	wire.Bind(new(logrus.FieldLogger), new(*logrus.Logger)),
)

var databaseSet = wire.NewSet(
	database.NewConnection,
)

var repositorySet = wire.NewSet(
	sqlstore.NewCatalogRepository,
	sqlstore.NewProgressRepository,
	sqlstore.NewSessionRepository,
	wire.Bind(new(repository.CatalogRepository), new(*sqlstore.CatalogRepository)),
	wire.Bind(new(repository.ProgressRepository), new(*sqlstore.ProgressRepository)),
	wire.Bind(new(repository.SessionRepository), new(*sqlstore.SessionRepository)),
)

var usecaseSet = wire.NewSet(
	events.NewPublisher,
	usecase.NewPoolUsecase,
	usecase.NewAnswerUsecase,
	usecase.NewSessionUsecase,
	usecase.NewWordUsecase,
)

var serverSet = wire.NewSet(
	httpapi.NewHandler,
	server.NewServer,
	scheduler.New,
)

// Initialize builds the application container using Wire.
func Initialize() (*Container, func(), error) {
	wire.Build(
		configSet,
		loggerSet,
		databaseSet,
		repositorySet,
		usecaseSet,
		serverSet,
		wire.Struct(new(Container), "*"),
	)
	return nil, nil, nil
}

// InitializeStorage builds the storage graph without the HTTP server.
func InitializeStorage() (*Storage, func(), error) {
	wire.Build(
		config.Load,
		loggerSet,
		databaseSet,
		repositorySet,
		wire.Struct(new(Storage), "*"),
	)
	return nil, nil, nil
}
