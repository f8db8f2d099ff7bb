package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type ballotRepository struct {
	db *sql.DB
}

func NewBallotRepository(db *sql.DB) ports.BallotRepository {
	return &ballotRepository{
		db: db,
	}
}

func (r *ballotRepository) SaveBallot(ctx context.Context, ballot *domain.ElectionBallot, record *domain.VoteRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryRecord := `
		INSERT INTO election_vote_records (election_id, user_id, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, queryRecord, record.ElectionID, record.UserID, record.CreatedAt); err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("failed to insert vote record: %w", err)
	}

	queryBallot := `
		INSERT INTO election_ballots (id, election_id, ballot, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, queryBallot, ballot.ID, ballot.ElectionID, ballot.Ballot, ballot.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert ballot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE election_vote_records SET ballot_id = $3 WHERE election_id = $1 AND user_id = $2`,
		record.ElectionID, record.UserID, record.BallotID,
	); err != nil {
		return fmt.Errorf("failed to link vote record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ballotRepository) HasVoted(ctx context.Context, electionID, userID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM election_vote_records WHERE election_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, electionID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return true, nil
}

func (r *ballotRepository) ListElectionBallots(ctx context.Context, electionID uuid.UUID) ([]domain.ElectionBallot, error) {
	query := `
		SELECT id, election_id, ballot, created_at
		FROM election_ballots
		WHERE election_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var ballots []domain.ElectionBallot
	for rows.Next() {
		var b domain.ElectionBallot
		if err := rows.Scan(&b.ID, &b.ElectionID, &b.Ballot, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}
	return ballots, nil
}

func (r *ballotRepository) UnlinkVoteRecordsToBallots(ctx context.Context, electionID uuid.UUID) (int64, error) {
	query := `UPDATE election_vote_records SET ballot_id = NULL WHERE election_id = $1 AND ballot_id IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, electionID)
	if err != nil {
		return 0, fmt.Errorf("failed to unlink vote records: %w", err)
	}
	return rowsAffected(res)
}
