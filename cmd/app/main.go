package main

import (
	"OcularBiomarker/internal/config"
	"OcularBiomarker/pkg/facemesh"
	"OcularBiomarker/pkg/log"
	"OcularBiomarker/pkg/redis"
	"github.com/joho/godotenv"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	validator := config.NewValidator()
	settings, err := config.LoadSettings(validator)
	if err != nil {
		logger.Fatal(err)
	}

	fiberApp := config.NewFiber(logger)
	landmarkProvider := facemesh.New(facemesh.Options{URL: settings.FacemeshURL}, logger)

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithSettings(settings),
		config.WithDatabase(),
		config.WithLandmarkProvider(landmarkProvider),
	}
	if settings.Trail.Store == config.TrailStoreRedis {
		options = append(options, config.WithRedisServer(redis.New(settings.Redis)))
	}
	options = append(options,
		config.WithS3Client(),
		config.WithModel(),
		config.WithTrailStore(),
		config.WithMiddleware(),
		config.WithUtils(),
	)

	server, err := config.NewServer(options...)
	if err != nil {
		landmarkProvider.Close()
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithField("port", settings.Port).Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
