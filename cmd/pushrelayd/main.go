package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"push-relay-backend/config"
	"push-relay-backend/internal/api"
	"push-relay-backend/internal/db"
	"push-relay-backend/internal/dispatch"
	"push-relay-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "pushrelay ", log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		logger.Println("No .env file found, relying on config file and environment")
	}

	// Load configuration
	configPath := os.Getenv("PUSHRELAY_CONFIG")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the push channels. Each one is optional: missing configuration
	// or a failed connect disables that channel and nothing else.
	var gateway dispatch.GatewaySender
	if cfg.Dispatch.GatewayAPIKey != "" {
		gateway = dispatch.NewGatewayClient(cfg.Dispatch.GatewayURL, cfg.Dispatch.GatewayAPIKey, cfg.Dispatch.Timeout)
		logger.Println("mobile push gateway channel enabled")
	} else {
		logger.Println("WARNING: mobile push gateway disabled, no API key configured")
	}

	var mqttPublisher dispatch.MQTTPublisher
	if cfg.Dispatch.MQTTBrokerAddress != "" {
		mqttClient, err := dispatch.NewMqttClient(cfg.Dispatch.MQTTBrokerAddress, cfg.Dispatch.Timeout)
		if err != nil {
			logger.Printf("WARNING: mqtt channel disabled: %v", err)
		} else {
			defer mqttClient.Close()
			mqttPublisher = mqttClient
			logger.Printf("mqtt channel enabled via %s", cfg.Dispatch.MQTTBrokerAddress)
		}
	} else {
		logger.Println("WARNING: mqtt channel disabled, no broker address configured")
	}

	var relay dispatch.RelayPublisher
	if cfg.Dispatch.RelaySocketURI != "" {
		relaySocket, err := dispatch.NewRelaySocket(ctx, cfg.Dispatch.RelaySocketURI)
		if err != nil {
			logger.Printf("WARNING: relay channel disabled: %v", err)
		} else {
			defer relaySocket.Close()
			relay = relaySocket
			logger.Printf("relay channel enabled via %s", cfg.Dispatch.RelaySocketURI)
		}
	}

	var webPush dispatch.WebPushSender
	if cfg.Dispatch.WebPush.PublicKey != "" && cfg.Dispatch.WebPush.PrivateKey != "" {
		webPush = dispatch.NewVapidSender(&webpush.Options{
			VAPIDPublicKey:  cfg.Dispatch.WebPush.PublicKey,
			VAPIDPrivateKey: cfg.Dispatch.WebPush.PrivateKey,
			Subscriber:      cfg.Dispatch.WebPush.Subject,
			TTL:             cfg.Dispatch.WebPush.TTL,
		})
		logger.Println("web push channel enabled")
	}

	dispatcher := dispatch.New(appStore, gateway, mqttPublisher, relay, webPush, cfg.Dispatch.Timeout)

	// Initialize router
	router := api.NewRouter(appStore, dispatcher, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
