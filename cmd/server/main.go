package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/streakrpro/backend/internal/auth"
	"github.com/streakrpro/backend/internal/config"
	"github.com/streakrpro/backend/internal/database"
	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/leaderboard"
	"github.com/streakrpro/backend/internal/localstore"
	"github.com/streakrpro/backend/internal/middleware"
	"github.com/streakrpro/backend/internal/play"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.UsesDevSecret() {
		log.Println("[server] WARN: JWT_SECRET not set, using the development signing key")
	}

	gameCfg, err := config.LoadGameConfig(cfg.GameConfigPath)
	if err != nil {
		log.Fatalf("Failed to load game config: %v", err)
	}
	gameCfg.StrictTransitions = gameCfg.StrictTransitions || cfg.StrictTransitions

	// Initialize database
	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer local.Close()

	// Initialize services and handlers
	tokens := auth.NewTokens(cfg.JWTSecret)
	authHandler := auth.NewHandler(auth.NewStore(db), tokens)

	scores := leaderboard.NewService(leaderboard.NewStore(db))
	leaderboardHandler := leaderboard.NewHandler(scores)

	registry := play.NewRegistry(play.Options{
		Config:   gameCfg,
		IdleTTL:  cfg.SessionIdleTTL,
		Recorder: scores,
		Stores: func(userID int64) game.KeyValueStore {
			return local.Namespace(fmt.Sprintf("user:%d", userID))
		},
	})
	playHandler := play.NewHandler(registry)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/anonymous", authHandler.Anonymous).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(tokens))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/auth/username", authHandler.UpdateUsername).Methods("PUT")
	protected.HandleFunc("/leaderboard", leaderboardHandler.Leaderboard).Methods("GET")
	protected.HandleFunc("/profile", leaderboardHandler.Profile).Methods("GET")
	protected.HandleFunc("/challenges/today", leaderboardHandler.TodayChallenge).Methods("GET")
	playHandler.Routes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry.Run(gctx, cfg.SessionSweepInterval)
		return nil
	})
	g.Go(func() error {
		log.Printf("[server] starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[server] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
