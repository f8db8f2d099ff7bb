package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/elections/internal/adapters/keyservice"
	"github.com/vncsmyrnk/elections/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/elections/internal/config"
	"github.com/vncsmyrnk/elections/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	var timeout time.Duration
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DB, "db-name", cfg.Postgres.DB, "Database name")
	flag.StringVar(&cfg.KeyService.URL, "key-service-url", cfg.KeyService.URL, "Key service base URL")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Job timeout")
	flag.Parse()

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err.Error())
		os.Exit(1)
	}

	deps := services.Dependencies{
		Elections:      postgres.NewElectionRepository(db),
		Candidates:     postgres.NewCandidateRepository(db),
		EligibleVoters: postgres.NewEligibleVoterRepository(db),
		Users:          postgres.NewUserRepository(db),
		Ballots:        postgres.NewBallotRepository(db),
		Keys:           keyservice.NewClient(cfg.KeyService.URL, cfg.KeyService.Secret, time.Duration(cfg.KeyService.Timeout)),
		Logger:         logger,
	}
	tallyService := services.NewTallyService(deps, services.NewResultService(deps))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("starting ballot counting job")

	if err := tallyService.CountAllPendingElections(ctx); err != nil {
		logger.Error("ballot counting finished with errors", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("ballot counting completed successfully")
}
