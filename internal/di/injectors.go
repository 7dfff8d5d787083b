//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"chargersim/internal"
	"chargersim/internal/controllers"
	"chargersim/internal/models"
	"chargersim/internal/protocol"
	"chargersim/internal/providers"
	"chargersim/internal/services"
	"chargersim/internal/storage"
	"chargersim/internal/structures"
	"chargersim/internal/transport"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		storage.NewZstdCompressor,
		storage.NewStore,
		wire.Bind(new(storage.StoreInterface), new(*storage.FileStore)),
		wire.Bind(new(services.Persister), new(*storage.FileStore)),

		models.NewDeviceStateStore,
		services.NewBroadcastRelay,
		services.NewSessionService,
		services.NewRfidService,
		services.NewTelemetryService,
		protocol.NewDispatcher,
		transport.NewHub,
		storage.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
