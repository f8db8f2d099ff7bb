package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/elections/internal/adapters/handler/http"
	"github.com/vncsmyrnk/elections/internal/adapters/keyservice"
	"github.com/vncsmyrnk/elections/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/elections/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/elections/internal/config"
	"github.com/vncsmyrnk/elections/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set")
	}
	if cfg.KeyService.URL == "" {
		logger.Error("KEY_SERVICE_URL is required")
		os.Exit(1)
	}

	deps := services.Dependencies{
		Keys:   keyservice.NewClient(cfg.KeyService.URL, cfg.KeyService.Secret, time.Duration(cfg.KeyService.Timeout)),
		Logger: logger,
	}

	if connStr := cfg.Postgres.ConnString(); connStr != "" {
		db, err := sql.Open("postgres", connStr)
		if err != nil {
			logger.Error("failed to open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("failed to reach database", "error", err.Error())
			os.Exit(1)
		}

		deps.Elections = postgres.NewElectionRepository(db)
		deps.Candidates = postgres.NewCandidateRepository(db)
		deps.EligibleVoters = postgres.NewEligibleVoterRepository(db)
		deps.Users = postgres.NewUserRepository(db)
		deps.Ballots = postgres.NewBallotRepository(db)
	} else {
		logger.Warn("no database configured, using in-memory storage")
		store := memory.NewStore(nil)
		deps.Elections = store
		deps.Candidates = store
		deps.EligibleVoters = store
		deps.Users = store
		deps.Ballots = store
	}

	handler := http.NewHandler(http.Handlers{
		Elections:      http.NewElectionHandler(services.NewElectionService(deps)),
		Candidates:     http.NewCandidateHandler(services.NewCandidateService(deps)),
		EligibleVoters: http.NewEligibleVoterHandler(services.NewEligibleVoterService(deps)),
		Results:        http.NewResultHandler(services.NewResultService(deps)),
		Ballots:        http.NewBallotHandler(services.NewBallotService(deps)),
	}, http.AuthConfig{
		JWTSecret:         []byte(cfg.JWTSecret),
		InternalAPISecret: cfg.InternalAPISecret,
	})
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
