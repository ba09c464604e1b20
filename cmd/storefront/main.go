package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matita/storefront/internal/cart"
	"github.com/matita/storefront/internal/catalog"
	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/favorites"
	"github.com/matita/storefront/internal/gateway"
	"github.com/matita/storefront/internal/httpapi"
	"github.com/matita/storefront/internal/inventory"
	"github.com/matita/storefront/internal/sales"
	"github.com/matita/storefront/internal/session"
	"github.com/matita/storefront/internal/snapshot"
)

type Config struct {
	HTTPPort           string
	AdminKey           string
	SnapshotPath       string
	SnapshotMigrations string
	StoreMigrations    string
	SessionBaseURL     string
	SessionAPIKey      string
	SessionToken       string
	RedisAddr          string
	RedisPassword      string
	EventsChannel      string
	KafkaBrokers       []string
	ShutdownTimeout    time.Duration
	Store              catalog.Credentials
}

func loadConfig() *Config {
	storePort, err := strconv.Atoi(getEnv("STORE_DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid STORE_DB_PORT: %v", err)
	}

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		AdminKey:           getEnv("ADMIN_KEY", "matita2026"),
		SnapshotPath:       getEnv("SNAPSHOT_DB_PATH", "storefront-snapshot.db"),
		SnapshotMigrations: getEnv("SNAPSHOT_MIGRATIONS", "internal/snapshot/migrations"),
		StoreMigrations:    getEnv("STORE_MIGRATIONS", "internal/catalog/migrations"),
		SessionBaseURL:     getEnv("SESSION_BASE_URL", "http://localhost:9999"),
		SessionAPIKey:      getEnv("SESSION_API_KEY", ""),
		SessionToken:       getEnv("SESSION_TOKEN", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		EventsChannel:      getEnv("AUTH_EVENTS_CHANNEL", gateway.DefaultEventsChannel),
		KafkaBrokers:       []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		ShutdownTimeout:    10 * time.Second,
		Store: catalog.Credentials{
			Host:              getEnv("STORE_DB_HOST", "localhost"),
			Port:              storePort,
			User:              getEnv("STORE_DB_USER", "storefront"),
			Password:          getEnv("STORE_DB_PASSWORD", "storefront"),
			DBName:            getEnv("STORE_DB_NAME", "storefront"),
			MigrationsDirPath: getEnv("STORE_MIGRATIONS", "internal/catalog/migrations"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local snapshot store
	snaps, err := snapshot.New(cfg.SnapshotPath)
	if err != nil {
		log.Fatalf("Failed to open local snapshot: %v", err)
	}
	defer snaps.Close()
	if err := snaps.RunMigrations(cfg.SnapshotMigrations); err != nil {
		log.Fatalf("Failed to migrate local snapshot: %v", err)
	}
	log.Printf("Local snapshot ready at %s", cfg.SnapshotPath)

	// Remote relational store
	repo, err := catalog.NewRepository(&cfg.Store)
	if err != nil {
		log.Fatalf("Failed to connect to remote store: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(&cfg.Store); err != nil {
		log.Fatalf("Failed to migrate remote store: %v", err)
	}
	log.Printf("Connected to remote store at %s:%d", cfg.Store.Host, cfg.Store.Port)

	// Redis: catalog cache + auth event feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed: ", err)
	}
	log.Printf("Redis ping succeeded")

	// Stores
	model := inventory.NewModel()
	catalogSvc := catalog.NewService(repo, catalog.NewRedisCache(redisClient), model)
	cartStore := cart.NewStore(model)

	favs, err := favorites.Load(ctx, snaps)
	if err != nil {
		log.Fatalf("Failed to load favorites: %v", err)
	}

	// Session gateway + reconciler
	client := gateway.NewClient(cfg.SessionBaseURL, cfg.SessionAPIKey)
	if cfg.SessionToken != "" {
		client.UseSession(&domain.Session{AccessToken: cfg.SessionToken})
	}
	remote := gateway.NewRemote(client, gateway.NewSubscription(redisClient, cfg.EventsChannel))

	reconciler := session.NewReconciler(remote, snaps, cartStore,
		session.WithConfigSource(repo),
	)
	reconciler.OnChange(func(change session.Change) {
		log.Printf("identity change: %s", change.Event)
	})
	reconciler.Start(ctx)

	go func() {
		if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("session event loop stopped: %v", err)
		}
	}()

	// Sales recording + outbox publisher
	salesRepo := sales.NewRepository(repo.DB())
	publisher := sales.NewPublisher(salesRepo, cfg.KafkaBrokers...)
	go publisher.Run(ctx)
	defer publisher.Close()

	// HTTP surface
	server := httpapi.NewServer(reconciler, catalogSvc, cartStore, favs, repo, salesRepo, cfg.AdminKey)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down storefront...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("Storefront stopped")
}
