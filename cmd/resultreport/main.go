package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/elections/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/elections/internal/config"
	"github.com/vncsmyrnk/elections/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var electionID string
	flag.StringVar(&electionID, "election", "", "Election id")
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DB, "db-name", cfg.Postgres.DB, "Database name")
	flag.Parse()

	id, err := uuid.Parse(electionID)
	if err != nil {
		log.Fatalf("invalid -election: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	resultService := services.NewResultService(services.Dependencies{
		Elections:      postgres.NewElectionRepository(db),
		Candidates:     postgres.NewCandidateRepository(db),
		EligibleVoters: postgres.NewEligibleVoterRepository(db),
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := resultService.GetElectionResult(ctx, id)
	if err != nil {
		log.Fatalf("Error loading election result: %v", err)
	}

	printResult(os.Stdout, result)
}
