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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rollinit/rollinit/internal/config"
	"github.com/rollinit/rollinit/internal/httpapi"
	"github.com/rollinit/rollinit/internal/repositories/combatants"
	"github.com/rollinit/rollinit/internal/repositories/dicerolls"
	"github.com/rollinit/rollinit/internal/repositories/encounters"
	"github.com/rollinit/rollinit/internal/repositories/sessions"
	"github.com/rollinit/rollinit/internal/services"
	"github.com/rollinit/rollinit/internal/ws"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	providerConfig := &services.ProviderConfig{}

	// Keep Redis client for cleanup
	var redisClient *redis.Client

	// Try to connect to Redis if configured
	switch {
	case cfg.Redis.URL != "":
		log.Printf("Connecting to Redis at: %s", cfg.Redis.URL)
		opts, parseErr := redis.ParseURL(cfg.Redis.URL)
		if parseErr != nil {
			log.Printf("Failed to parse Redis URL: %v", parseErr)
			log.Println("Falling back to in-memory repositories")
		} else {
			redisClient = redis.NewClient(opts)
		}
	case cfg.Redis.Addr != "":
		log.Printf("Connecting to Redis at: %s", cfg.Redis.Addr)
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	default:
		log.Println("No Redis configured, using in-memory repositories")
	}

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			log.Printf("Failed to connect to Redis: %v", pingErr)
			log.Println("Falling back to in-memory repositories")
			redisClient = nil
		} else {
			log.Println("Successfully connected to Redis")

			providerConfig.SessionRepository = sessions.NewRedis(redisClient)
			providerConfig.CombatantRepository = combatants.NewRedis(redisClient)
			providerConfig.EncounterRepository = encounters.NewRedis(redisClient)
			providerConfig.DiceRollRepository = dicerolls.NewRedis(redisClient)

			log.Println("Using Redis for persistence")
		}
		cancel()
	}

	serviceProvider := services.NewProvider(providerConfig)

	hub := ws.NewHub()
	ws.NewHandler(&ws.HandlerConfig{
		Hub:              hub,
		SessionService:   serviceProvider.SessionService,
		CombatantService: serviceProvider.CombatantService,
		EncounterService: serviceProvider.EncounterService,
		DiceService:      serviceProvider.DiceService,
		StateService:     serviceProvider.StateService,
	})

	apiServer := httpapi.NewServer(&httpapi.ServerConfig{
		SessionService: serviceProvider.SessionService,
		Hub:            hub,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiServer,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server error: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		} else {
			log.Println("Closed Redis connection")
		}
	}
}
