package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/farm-sync/internal/adapter"
	"github.com/MKhiriev/farm-sync/internal/config"
	"github.com/MKhiriev/farm-sync/internal/handler"
	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/server"
	"github.com/MKhiriev/farm-sync/internal/service"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/internal/workers"
	"github.com/MKhiriev/farm-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	fmt.Print(models.NewAppBuildInfo(buildVersion, buildDate, buildCommit))

	log := logger.NewClientLogger("farm-sync")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	remoteStore, err := adapter.NewHTTPRemoteStore(cfg.Adapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote store adapter")
	}
	session := adapter.NewTokenSession(cfg.Adapter.Token, log)

	localStorage, err := store.NewClientStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	services := service.NewClientServices(localStorage, remoteStore, session, cfg, log)

	if err := services.Coordinator.Hydrate(context.Background()); err != nil {
		log.Warn().Err(err).Msg("cache hydration incomplete")
	}

	jobs := workers.NewWorkers(services.Coordinator, cfg.Workers, log)
	jobs.Run(context.Background())

	observability := handler.New(services.Coordinator, log)
	srv, err := server.NewServer(observability.Init(), cfg.Metrics, func() {
		jobs.Stop()
		services.Coordinator.Flush(context.Background())
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create observability server")
	}

	srv.RunServer()
}
