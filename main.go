// @title Plan Engine API
// @version 1.0
// @description Trip-planning and in-trip adaptation engine: itinerary
// generation, edit/validation, booking orchestration, and event-driven
// replanning.
// @license.name MIT
// @host localhost:8080
// @BasePath /api/v1
package main

import (
	"context"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"planengine/internal/booking"
	"planengine/internal/cache"
	"planengine/internal/config"
	"planengine/internal/database"
	"planengine/internal/editor"
	"planengine/internal/eventbus"
	"planengine/internal/generator"
	"planengine/internal/handlers"
	"planengine/internal/logging"
	"planengine/internal/middleware"
	"planengine/internal/monitor"
	"planengine/internal/providers"
	"planengine/internal/providers/mockcatalog"
	"planengine/internal/providers/mockprovider"
	"planengine/internal/providers/mockrouting"
	"planengine/internal/providers/mockweather"
	"planengine/internal/replan"
	"planengine/internal/routes"
	"planengine/internal/store/gormstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg := config.GetConfig()
	logging.Init(cfg.Server.Environment, os.Getenv("LOG_LEVEL"))

	if err := database.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	st := gormstore.New(database.GetDB())

	ctx := context.Background()
	poiCache, err := cache.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing with a null cache")
		poiCache = cache.NullCache{}
	}

	publisher, err := eventbus.NewAMQPPublisher(cfg.AMQP)
	if err != nil {
		log.Warn().Err(err).Msg("amqp broker unavailable, continuing with a null publisher")
		publisher = eventbus.NullPublisher{}
	}
	defer publisher.Close()

	catalog := cache.NewCachingCatalog(mockcatalog.New(), poiCache)
	routing := mockrouting.New()
	weather := mockweather.New()

	registry := providers.NewRegistry()
	registry.Register(mockprovider.New())

	gen := generator.New(st, routing, cfg.Plan.ItemBufferMinutes, cfg.Plan.MaxItinerarySlots)
	ed := editor.New(st, catalog, cfg.Plan.ItemBufferMinutes)
	bk := booking.New(st, registry)
	rp := replan.New(st, routing, catalog, cfg.Plan.RollbackWindow, cfg.Plan.ReplanBatchSize)
	mon := monitor.New(st, weather, rp, monitor.DefaultInterval)

	server := handlers.New(st, gen, ed, bk, rp, catalog, publisher, mon)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Logging(), middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", "Idempotency-Key"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	routes.Setup(router, server)
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	addr := cfg.Server.ServerAddr()
	log.Info().Str("addr", addr).Msg("starting plan engine")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
