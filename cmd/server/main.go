package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/digital_store/internal/config"
	"github.com/Skotchmaster/digital_store/internal/es"
	"github.com/Skotchmaster/digital_store/internal/handlers"
	"github.com/Skotchmaster/digital_store/internal/logging"
	"github.com/Skotchmaster/digital_store/internal/mykafka"
	httpserver "github.com/Skotchmaster/digital_store/internal/transport/http"
	"github.com/Skotchmaster/digital_store/internal/upload"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(context.Background(), configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		producer = &mykafka.Producer{}
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	deps := httpserver.Deps{
		DB: db,
		CategoryHandler: &handlers.CategoryHandler{DB: db, Producer: producer},
		ProductHandler: &handlers.ProductHandler{
			DB:       db,
			Producer: producer,
			Saver:    &upload.Saver{Dir: configuration.UPLOAD_DIR},
			Index:    "product",
		},
		UserHandler: &handlers.UserHandler{DB: db, Producer: producer, JWTSecret: jwtSecret},
		JWTSecret:   jwtSecret,
	}

	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.ProductHandler.ES = esClient
		deps.SearchHandler = &handlers.SearchHandler{ES: esClient, Index: "product"}
	} else {
		logger.Warn("ES_URL not set, full-text search disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(logging.RequestLogger(logger))

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
