package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mkarpenko/stores_api/internal/config"
	"github.com/mkarpenko/stores_api/internal/es"
	"github.com/mkarpenko/stores_api/internal/handlers"
	"github.com/mkarpenko/stores_api/internal/logging"
	authmw "github.com/mkarpenko/stores_api/internal/middleware/auth"
	"github.com/mkarpenko/stores_api/internal/mykafka"
	"github.com/mkarpenko/stores_api/internal/revocation"
	"github.com/mkarpenko/stores_api/internal/service/token"
	httpserver "github.com/mkarpenko/stores_api/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	tokens := &token.Service{Secret: []byte(configuration.JWT_SECRET)}

	var registry revocation.Registry
	var redisClient *redis.Client
	if configuration.REDIS_ADDR != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: configuration.REDIS_ADDR})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis init failed: %v", err)
		}
		registry = &revocation.RedisRegistry{Client: redisClient}
	} else {
		registry = &revocation.GormRegistry{DB: db}
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	var indexer *es.Indexer
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration.ES_URL, configuration.ES_USER, configuration.ES_PASSWORD)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		} else {
			indexer = &es.Indexer{Client: esClient, Index: "items"}
		}
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	gate := &authmw.Gate{Tokens: tokens, Registry: registry}
	deps := httpserver.Deps{
		Gate:          gate,
		AuthHandler:   &handlers.AuthHandler{DB: db, Tokens: tokens, Registry: registry, Producer: producer},
		UserHandler:   &handlers.UserHandler{DB: db, Producer: producer},
		StoreHandler:  &handlers.StoreHandler{DB: db, Producer: producer},
		ItemHandler:   &handlers.ItemHandler{DB: db, Producer: producer, Indexer: indexer},
		TagHandler:    &handlers.TagHandler{DB: db, Producer: producer},
		SearchHandler: &handlers.SearchHandler{Indexer: indexer},
	}
	httpserver.Register(e, &deps)

	port := configuration.PORT
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
