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

type eligibleVoterRepository struct {
	db *sql.DB
}

func NewEligibleVoterRepository(db *sql.DB) ports.EligibleVoterRepository {
	return &eligibleVoterRepository{
		db: db,
	}
}

func (r *eligibleVoterRepository) ListEligibleVoters(ctx context.Context, electionID uuid.UUID, filter domain.EligibleVoterFilter, pagination domain.Pagination) ([]domain.EligibleVoter, error) {
	pagination = pagination.Normalize()
	query := `
		SELECT election_id, user_id, type, created_at
		FROM election_eligible_voters
		WHERE election_id = $1 AND ($2::text = '' OR type = $2::text)
		ORDER BY created_at, user_id
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, electionID, string(filter.Type), pagination.Limit, pagination.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible voters: %w", err)
	}
	defer rows.Close()

	var voters []domain.EligibleVoter
	for rows.Next() {
		var v domain.EligibleVoter
		if err := rows.Scan(&v.ElectionID, &v.UserID, &v.Type, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan eligible voter: %w", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eligible voters: %w", err)
	}
	return voters, nil
}

func (r *eligibleVoterRepository) GetEligibleVoter(ctx context.Context, electionID, userID uuid.UUID) (*domain.EligibleVoter, error) {
	query := `
		SELECT election_id, user_id, type, created_at
		FROM election_eligible_voters
		WHERE election_id = $1 AND user_id = $2
	`
	var v domain.EligibleVoter
	err := r.db.QueryRowContext(ctx, query, electionID, userID).Scan(&v.ElectionID, &v.UserID, &v.Type, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEligibleVoterNotFound
		}
		return nil, fmt.Errorf("failed to get eligible voter: %w", err)
	}
	return &v, nil
}

func (r *eligibleVoterRepository) FilterExistingEligibleVoters(ctx context.Context, electionID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM election_eligible_voters
		WHERE election_id = $1 AND user_id = ANY($2::uuid[])
	`
	rows, err := r.db.QueryContext(ctx, query, electionID, uuidStrings(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to filter eligible voters: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *eligibleVoterRepository) BulkCreateEligibleVoters(ctx context.Context, voters []domain.EligibleVoter) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO election_eligible_voters (election_id, user_id, type, created_at)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare eligible voter statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range voters {
		if _, err := stmt.ExecContext(ctx, v.ElectionID, v.UserID, v.Type, v.CreatedAt); err != nil {
			if _, ok := uniqueConstraint(err); ok {
				return domain.ErrEligibleVoterExists
			}
			return fmt.Errorf("failed to insert eligible voter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *eligibleVoterRepository) BulkDeleteEligibleVoters(ctx context.Context, electionID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	query := `DELETE FROM election_eligible_voters WHERE election_id = $1 AND user_id = ANY($2::uuid[])`
	res, err := r.db.ExecContext(ctx, query, electionID, uuidStrings(userIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete eligible voters: %w", err)
	}
	return rowsAffected(res)
}

func (r *eligibleVoterRepository) CountElectionEligibleVoters(ctx context.Context, electionID uuid.UUID, voterType domain.EligibleVoterType) (int64, error) {
	query := `SELECT COUNT(*) FROM election_eligible_voters WHERE election_id = $1 AND type = $2`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, electionID, voterType).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count eligible voters: %w", err)
	}
	return count, nil
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
