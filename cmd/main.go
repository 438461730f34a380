package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	_ "github.com/lib/pq"

	"github.com/Dosada05/tourney-engine/brackets"
	"github.com/Dosada05/tourney-engine/cache"
	"github.com/Dosada05/tourney-engine/config"
	"github.com/Dosada05/tourney-engine/db"
	"github.com/Dosada05/tourney-engine/handlers"
	"github.com/Dosada05/tourney-engine/repositories"
	api "github.com/Dosada05/tourney-engine/routes"
	"github.com/Dosada05/tourney-engine/services"
	"github.com/Dosada05/tourney-engine/storage"
	"github.com/Dosada05/tourney-engine/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	leaderboardCache := cache.NewRedisStore(redisClient)

	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}

	var walletClient wallet.Client
	if cfg.WalletBaseURL != "" {
		walletClient = wallet.NewHTTPClient(cfg.WalletBaseURL, cfg.WalletAPIKey, cfg.WalletTimeout)
	} else {
		logger.Warn("WALLET_BASE_URL not set, using in-memory wallet client")
		walletClient = wallet.NewMemoryClient()
	}

	hub := brackets.NewHub()
	go hub.Run()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	prizeRepo := repositories.NewPostgresPrizeRepository(dbConn)

	standingsService := services.NewStandingsService(
		dbConn,
		standingRepo,
		matchRepo,
		tournamentRepo,
		registrationRepo,
		leaderboardCache,
		hub,
		logger,
	)
	matchService := services.NewMatchService(
		dbConn,
		matchRepo,
		bracketRepo,
		tournamentRepo,
		standingsService,
		hub,
		logger,
	)
	bracketService := services.NewBracketService(
		dbConn,
		bracketRepo,
		matchRepo,
		tournamentRepo,
		registrationRepo,
		matchService,
		standingsService,
		hub,
		logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		cloudflareUploader,
		hub,
		logger,
	)
	registrationService := services.NewRegistrationService(
		dbConn,
		registrationRepo,
		tournamentRepo,
		hub,
		logger,
	)
	prizeService := services.NewPrizeService(
		dbConn,
		prizeRepo,
		standingRepo,
		tournamentRepo,
		registrationRepo,
		walletClient,
		cfg.WalletEscrowID,
		cfg.WalletTimeout,
		logger,
	)

	h := api.Handlers{
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Bracket:      handlers.NewBracketHandler(bracketService),
		Match:        handlers.NewMatchHandler(matchService),
		Standings:    handlers.NewStandingsHandler(standingsService),
		Prize:        handlers.NewPrizeHandler(prizeService),
		WebSocket:    handlers.NewWebSocketHandler(hub, logger),
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, h, cfg.JWTSecretKey, cfg.CORSAllowedOrigins, logger)

	runScheduler(tournamentService, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("server exited")
}

// runScheduler polls tournament schedules once a minute, auto-advancing
// status by date (e.g. draft -> registration_open when registration_start
// elapses). Only one replica acquires the advisory lock per tick, so this
// is safe to run on every instance.
func runScheduler(tournamentService services.TournamentService, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			n, err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background(), time.Now())
			if err != nil {
				logger.Error("auto status update failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("auto-advanced tournament statuses", slog.Int("count", n))
			}
		}
	}()
}
