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

const candidateColumns = `
	id, election_id, name, description, profile_image_path, number,
	vote_online, vote_onsite, created_at, updated_at`

type candidateRepository struct {
	db *sql.DB
}

func NewCandidateRepository(db *sql.DB) ports.CandidateRepository {
	return &candidateRepository{
		db: db,
	}
}

func (r *candidateRepository) ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.ElectionCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM election_candidates WHERE election_id = $1 ORDER BY number`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ElectionCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) GetCandidate(ctx context.Context, electionID, candidateID uuid.UUID) (*domain.ElectionCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM election_candidates WHERE election_id = $1 AND id = $2`
	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, electionID, candidateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

func (r *candidateRepository) CreateCandidate(ctx context.Context, c *domain.ElectionCandidate) error {
	query := `
		INSERT INTO election_candidates (id, election_id, name, description, profile_image_path, number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ElectionID, c.Name, c.Description, c.ProfileImagePath, c.Number, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return candidateWriteError(err, "insert")
	}
	return nil
}

func (r *candidateRepository) UpdateCandidate(ctx context.Context, c *domain.ElectionCandidate) error {
	query := `
		UPDATE election_candidates
		SET name = $3, description = $4, profile_image_path = $5, number = $6, updated_at = $7
		WHERE election_id = $1 AND id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ElectionID, c.ID, c.Name, c.Description, c.ProfileImagePath, c.Number, c.UpdatedAt)
	if err != nil {
		return candidateWriteError(err, "update")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func (r *candidateRepository) DeleteCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM election_candidates WHERE election_id = $1 AND id = $2`, electionID, candidateID)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func candidateWriteError(err error, op string) error {
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case "election_candidates_number_key":
			return domain.ErrCandidateNumberTaken
		case "election_candidates_name_key":
			return domain.ErrCandidateNameTaken
		}
	}
	return fmt.Errorf("failed to %s candidate: %w", op, err)
}

func scanCandidate(row rowScanner) (*domain.ElectionCandidate, error) {
	var (
		c              domain.ElectionCandidate
		online, onsite sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Description, &c.ProfileImagePath, &c.Number,
		&online, &onsite, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if online.Valid {
		c.VoteOnline = &online.Int64
	}
	if onsite.Valid {
		c.VoteOnsite = &onsite.Int64
	}
	return &c, nil
}
