package fx

import (
	"tennis-tracker/internal/api"
	"tennis-tracker/internal/config"
	"tennis-tracker/internal/database"
	"tennis-tracker/internal/logger"
	"tennis-tracker/internal/rating"
	"tennis-tracker/internal/repository"
	"tennis-tracker/internal/server"
	"tennis-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(rating.DefaultConfig),
	// stores
	fx.Provide(repository.NewBlobStore),
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	// feed client
	fx.Provide(api.NewFeedClient),
	// svc
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewTransferService),
	// server
	fx.Provide(server.New),
)
