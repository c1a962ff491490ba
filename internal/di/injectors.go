//go:build wireinject
// +build wireinject

package di

import (
	"ecgd/internal"
	"ecgd/internal/backup"
	"ecgd/internal/controllers"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"ecgd/internal/services"
	"ecgd/internal/structures"

	wire "github.com/google/wire"
)

var storeSet = wire.NewSet(
	providers.NewConfigProvider,
	newLogger,
	providers.NewDatabaseProvider,
	models.NewMeasurementStore,
)

var backupSet = wire.NewSet(
	newCompressor,
	backup.NewFileManager,
	backup.NewMaintenance,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		storeSet,
		backupSet,
		wire.Bind(new(providers.MeasurementCounter), new(models.MeasurementStoreInterface)),
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewAnalyzerProvider,
		providers.NewAuthenticator,
		providers.NewAuthMiddleware,

		services.NewIngestionService,
		services.NewHistoryService,
		controllers.NewApiController,
		controllers.NewHistoryController,
		controllers.NewAdminController,
		controllers.NewHealthController,
		backup.NewScheduler,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}

func InitMaintenance(cfg *structures.CliFlags) (*backup.Maintenance, func(), error) {

	wire.Build(
		storeSet,
		backupSet,
	)

	return nil, nil, nil
}
